package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName is the name of the session cookie
	CookieName = "hrms_session"
	// SessionHeader carries the session id for clients without cookies
	SessionHeader = "X-Session-Id"
	sessionQuery  = "sessionId"
)

// SetSessionCookie sets an HTTP-only session cookie living as long as an
// idle session does.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// getSessionID reads the session id from the cookie, the X-Session-Id
// header or the sessionId query parameter, in that order. Ids that are not
// UUIDs are ignored.
func getSessionID(r *http.Request) string {
	candidates := []string{r.Header.Get(SessionHeader), r.URL.Query().Get(sessionQuery)}
	if c, err := r.Cookie(CookieName); err == nil {
		candidates = append([]string{c.Value}, candidates...)
	}
	for _, sid := range candidates {
		if _, err := uuid.Parse(sid); err == nil {
			return sid
		}
	}
	return ""
}

func newSessionID() string {
	return uuid.NewString()
}
