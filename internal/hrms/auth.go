package hrms

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// CredentialsConfig enables bearer-token calls to backends that sit behind an
// OAuth2 client-credentials gateway.
type CredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c CredentialsConfig) Enabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

// NewCredentialsHTTPClient returns an HTTP client that fetches and refreshes
// tokens on demand. ctx scopes token requests, not individual calls.
func NewCredentialsHTTPClient(ctx context.Context, cfg CredentialsConfig, timeout time.Duration) *http.Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	hc := cc.Client(ctx)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc.Timeout = timeout
	return hc
}
