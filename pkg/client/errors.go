package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork marks transport failures (DNS, refused connections, timeouts).
	ErrNetwork = errors.New("client: network failure")
	// ErrUploadConflict marks HTTP 409 answers from the CDN upload endpoint.
	ErrUploadConflict = errors.New("client: upload conflict")
	// ErrMissingFileURL is returned when an upload succeeds without a file URL.
	ErrMissingFileURL = errors.New("client: upload response has no file url")
	// ErrInvalidPassword is returned when password re-verification fails.
	ErrInvalidPassword = errors.New("client: password verification failed")
	// ErrNoSession is returned when a call is attempted without a bearer token.
	ErrNoSession = errors.New("client: session token is required")
)

// NetworkError wraps a transport failure for a named operation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("client: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets callers match with errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// HTTPError is a non-success HTTP (or envelope) status.
type HTTPError struct {
	Op       string
	Status   int
	Body     string
	Messages []string
}

func (e *HTTPError) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = "unexpected status"
	}
	if len(e.Messages) > 0 {
		return fmt.Sprintf("client: %s: %d %s: %s", e.Op, e.Status, text, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("client: %s: %d %s", e.Op, e.Status, text)
}

// Is maps 409 answers onto ErrUploadConflict.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUploadConflict && e.Status == http.StatusConflict
}

// BusinessError is a business-rule rejection: the backend answered but
// populated error[].
type BusinessError struct {
	Op      string
	Entries []ErrorEntry
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("client: %s rejected: %s", e.Op, strings.Join(e.Messages(), "; "))
}

// Messages returns the non-empty entry messages.
func (e *BusinessError) Messages() []string {
	out := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		if msg := strings.TrimSpace(entry.Message); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// FieldErrors groups entries that name a field; entries without a field are
// returned under the empty key.
func (e *BusinessError) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for _, entry := range e.Entries {
		msg := strings.TrimSpace(entry.Message)
		if msg == "" {
			continue
		}
		out[strings.TrimSpace(entry.Field)] = append(out[strings.TrimSpace(entry.Field)], msg)
	}
	return out
}

// StatusOf extracts the HTTP status from an HTTPError chain, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
