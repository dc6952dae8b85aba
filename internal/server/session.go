package server

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
)

// Cookie and header names carrying the session.
const (
	SessionCookie = "bo_session"
	LocaleCookie  = "bo_locale"
	RoleHeader    = "X-Backoffice-Role"
	UserHeader    = "X-Backoffice-User"
)

// sessionFrom reads the bearer token from the Authorization header, falling
// back to the session cookie. Role and user id are set by the gateway in
// front of the admin; the gateway must strip these headers from client
// requests, since the server trusts them as sent.
func sessionFrom(r *http.Request) (client.Session, bool) {
	token := ""
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if scheme, value, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(value)
		}
	}
	if token == "" {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
	}
	if token == "" {
		return client.Session{}, false
	}

	session := client.Session{
		Token:  token,
		Role:   strings.TrimSpace(r.Header.Get(RoleHeader)),
		UserID: strings.TrimSpace(r.Header.Get(UserHeader)),
	}
	if cookie, err := r.Cookie(LocaleCookie); err == nil {
		session.Locale = strings.TrimSpace(cookie.Value)
	}
	return session, true
}

func sessionOf(r *http.Request) client.Session {
	session, _ := r.Context().Value(sessionKey).(client.Session)
	return session
}

// RequestSession returns the session of a request, for components mounted
// behind the server such as the lookup endpoint.
func RequestSession(r *http.Request) (client.Session, error) {
	if session, ok := r.Context().Value(sessionKey).(client.Session); ok && session.Valid() {
		return session, nil
	}
	if session, ok := sessionFrom(r); ok {
		return session, nil
	}
	return client.Session{}, client.ErrNoSession
}
