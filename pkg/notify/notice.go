// Package notify turns action outcomes into user-facing notices (the admin's
// toast/snackbar strip) and keeps a per-session flash queue so notices survive
// the redirect that follows every POST.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/sirupsen/logrus"
)

// Level is the notice severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one toast entry.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Success builds a success notice.
func Success(message string) Notice { return Notice{Level: LevelSuccess, Message: message} }

// Info builds an informational notice.
func Info(message string) Notice { return Notice{Level: LevelInfo, Message: message} }

// Warning builds a warning notice.
func Warning(message string) Notice { return Notice{Level: LevelWarning, Message: message} }

// Error builds an error notice.
func Error(message string) Notice { return Notice{Level: LevelError, Message: message} }

// ErrValidation marks client-side validation failures (missing required
// fields, bad formats) raised before any backend call.
var ErrValidation = errors.New("validation failed")

// FromError maps the failure taxonomy onto a user message and logs the error
// with the action that produced it. It never retries or escalates.
func FromError(logger logrus.FieldLogger, action string, err error) Notice {
	if err == nil {
		return Success("Saved")
	}
	if logger != nil {
		logger.WithError(err).WithField("action", action).Error("action failed")
	}

	var (
		business *client.BusinessError
		httpErr  *client.HTTPError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return Warning("The request was cancelled")
	case errors.Is(err, client.ErrUploadConflict):
		return Error("A file with the same name already exists")
	case errors.Is(err, client.ErrMissingFileURL):
		return Error("Upload finished but no file address was returned")
	case errors.Is(err, client.ErrInvalidPassword):
		return Error("Password verification failed")
	case errors.Is(err, client.ErrNoSession):
		return Error("Your session has expired, please sign in again")
	case errors.Is(err, ErrValidation):
		return Warning("Please correct the highlighted fields")
	case errors.As(err, &business):
		if msgs := business.Messages(); len(msgs) > 0 {
			return Error(strings.Join(msgs, "; "))
		}
		return Error("The request was rejected")
	case errors.Is(err, client.ErrNetwork):
		return Error("The service is unavailable, please try again")
	case errors.As(err, &httpErr):
		if len(httpErr.Messages) > 0 {
			return Error(strings.Join(httpErr.Messages, "; "))
		}
		return Error("The service answered with an error")
	}
	return Error("Something went wrong")
}

// Flash is a per-session notice queue drained on the next render.
type Flash struct {
	mu     sync.Mutex
	queues map[string][]Notice
	limit  int
}

// NewFlash builds an empty flash store keeping at most limit notices per
// session (older ones are dropped).
func NewFlash(limit int) *Flash {
	if limit <= 0 {
		limit = 10
	}
	return &Flash{queues: make(map[string][]Notice), limit: limit}
}

// Push queues notices for a session.
func (f *Flash) Push(sessionID string, notices ...Notice) {
	if f == nil || sessionID == "" || len(notices) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := append(f.queues[sessionID], notices...)
	if len(queue) > f.limit {
		queue = queue[len(queue)-f.limit:]
	}
	f.queues[sessionID] = queue
}

// Drain returns and clears the queued notices for a session.
func (f *Flash) Drain(sessionID string) []Notice {
	if f == nil || sessionID == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.queues[sessionID]
	delete(f.queues, sessionID)
	return queue
}
