package client

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Session is the read-only credential passed down to every call.
type Session struct {
	Token  string
	Locale string
	UserID string
	Role   string
}

// Valid reports whether the session carries a bearer token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// ID derives a stable, non-reversible key for per-session server state.
func (s Session) ID() string {
	if !s.Valid() {
		return ""
	}
	sum := sha256.Sum256([]byte(s.Token))
	return hex.EncodeToString(sum[:12])
}

// StateKey keys server state that depends on the session's role, such as a
// form decorated with role-based edit rights. A role change opens fresh
// state. The role is asserted by the gateway, which must drop any role header
// a client sends itself.
func (s Session) StateKey() string {
	if !s.Valid() {
		return ""
	}
	sum := sha256.Sum256([]byte(s.Token + "\x00" + strings.TrimSpace(s.Role)))
	return hex.EncodeToString(sum[:12])
}

// EffectiveLocale defaults to "en" when none was supplied.
func (s Session) EffectiveLocale() string {
	if locale := strings.TrimSpace(s.Locale); locale != "" {
		return locale
	}
	return "en"
}
