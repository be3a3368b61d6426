package hrms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultTimeout = 20 * time.Second

// ErrEmptyAnswer is returned when /chat answers with a null or empty answer.
var ErrEmptyAnswer = errors.New("hrms: empty answer")

// StatusError captures non-2xx responses from the backend.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hrms: unexpected status %d from %s: %s", e.StatusCode, e.Path, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// Client talks to the HRMS backend's /chat, /apply_leave and /leave_balance
// endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. NewClient applies it to a copy of the
// HTTP client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("hrms: base URL must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "hrms: parse base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("hrms: unsupported base URL scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// Chat forwards a free-form question.
func (c *Client) Chat(ctx context.Context, question string) (Answer, error) {
	var resp chatResponse
	if err := c.postJSON(ctx, "/chat", chatRequest{Question: question}, &resp); err != nil {
		return Answer{}, err
	}
	answer, err := parseAnswer(resp.Answer)
	if err != nil {
		return Answer{}, errors.Wrap(err, "hrms: decode chat answer")
	}
	return answer, nil
}

func (c *Client) ApplyLeave(ctx context.Context, app LeaveApplication) (ApplyLeaveResult, error) {
	var res ApplyLeaveResult
	if err := c.postJSON(ctx, "/apply_leave", app, &res); err != nil {
		return ApplyLeaveResult{}, err
	}
	return res, nil
}

// LeaveBalance looks up balances; an empty leaveType asks for all types.
func (c *Client) LeaveBalance(ctx context.Context, userID, leaveType string) (BalanceResult, error) {
	var res BalanceResult
	req := balanceRequest{UserID: userID, LeaveType: leaveType}
	if err := c.postJSON(ctx, "/leave_balance", req, &res); err != nil {
		return BalanceResult{}, err
	}
	return res, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "hrms: marshal %s request", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "hrms: build %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "hrms: call %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "hrms: decode %s response", path)
	}
	return nil
}
