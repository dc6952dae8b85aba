// Package editable tracks the view/edit toggle of label-style fields per
// operator session and gates sensitive fields behind a password check.
package editable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/ratelimit"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

var (
	// ErrNotModifiable is returned when a field does not allow edits.
	ErrNotModifiable = errors.New("editable: field is not modifiable")
	// ErrNotSensitive is returned when unlocking a field that needs no unlock.
	ErrNotSensitive = errors.New("editable: field is not sensitive")
	// ErrTooManyAttempts is returned when a session exceeds the unlock rate.
	ErrTooManyAttempts = errors.New("editable: too many password attempts")
)

// Verifier re-checks the operator password.
type Verifier interface {
	VerifyPassword(ctx context.Context, s client.Session, password string) error
}

type key struct {
	session string
	form    string
	field   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithAttemptLimit allows burst unlock attempts per session, then one per
// interval.
func WithAttemptLimit(interval time.Duration, burst int) Option {
	return func(c *Controller) {
		c.attempts = ratelimit.NewKeyed(interval, burst, time.Hour)
	}
}

// Controller holds edit modes and unlocks. It is safe for concurrent use.
type Controller struct {
	mu       sync.RWMutex
	modes    map[key]render.Mode
	unlocked map[key]bool
	verifier Verifier
	attempts *ratelimit.Keyed
}

// NewController builds a controller. The default attempt limit is three
// attempts, then one every 30 seconds.
func NewController(verifier Verifier, opts ...Option) *Controller {
	c := &Controller{
		modes:    make(map[key]render.Mode),
		unlocked: make(map[key]bool),
		verifier: verifier,
		attempts: ratelimit.NewKeyed(30*time.Second, 3, time.Hour),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Toggle flips the field between view and edit and returns the new mode.
// Leaving edit mode locks a sensitive field again.
func (c *Controller) Toggle(sessionID, formCode string, field model.Field) (render.Mode, error) {
	if !field.IsModify {
		return render.ModeView, fmt.Errorf("%w: %q", ErrNotModifiable, field.Code)
	}
	k := key{session: sessionID, form: formCode, field: field.Code}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modes[k] == render.ModeEdit {
		delete(c.modes, k)
		delete(c.unlocked, k)
		return render.ModeView, nil
	}
	c.modes[k] = render.ModeEdit
	return render.ModeEdit, nil
}

// Unlock verifies the password for a sensitive field and opens edit mode on
// success. Attempts are rate limited per session.
func (c *Controller) Unlock(ctx context.Context, session client.Session, formCode string, field model.Field, password string) error {
	if !field.IsModify {
		return fmt.Errorf("%w: %q", ErrNotModifiable, field.Code)
	}
	if !field.IsSensitive {
		return fmt.Errorf("%w: %q", ErrNotSensitive, field.Code)
	}
	sessionID := session.ID()
	if !c.attempts.Allow(sessionID) {
		return ErrTooManyAttempts
	}
	if c.verifier == nil {
		return errors.New("editable: password verifier not configured")
	}
	if err := c.verifier.VerifyPassword(ctx, session, password); err != nil {
		return err
	}

	k := key{session: sessionID, form: formCode, field: field.Code}
	c.mu.Lock()
	c.unlocked[k] = true
	c.modes[k] = render.ModeEdit
	c.mu.Unlock()
	return nil
}

// Modes returns the edit modes of one form for a session.
func (c *Controller) Modes(sessionID, formCode string) map[string]render.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := map[string]render.Mode{}
	for k, mode := range c.modes {
		if k.session == sessionID && k.form == formCode {
			out[k.field] = mode
		}
	}
	return out
}

// Unlocked returns the unlocked sensitive fields of one form for a session.
func (c *Controller) Unlocked(sessionID, formCode string) map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := map[string]bool{}
	for k, ok := range c.unlocked {
		if ok && k.session == sessionID && k.form == formCode {
			out[k.field] = true
		}
	}
	return out
}

// Reset returns every field of the form to view mode, after a submit.
func (c *Controller) Reset(sessionID, formCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.modes {
		if k.session == sessionID && k.form == formCode {
			delete(c.modes, k)
		}
	}
	for k := range c.unlocked {
		if k.session == sessionID && k.form == formCode {
			delete(c.unlocked, k)
		}
	}
}

// Editable reports whether posted values for a field may be applied: the
// field must be modifiable, and a sensitive field must be unlocked.
func (c *Controller) Editable(sessionID, formCode string, field model.Field) bool {
	if !field.IsModify {
		return false
	}
	if !field.IsSensitive {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unlocked[key{session: sessionID, form: formCode, field: field.Code}]
}

// InputKind picks the widget a label field uses in edit mode: an explicit
// metadata "input" hint, then select when options exist, then the field type.
func InputKind(field model.Field) string {
	if hint := strings.TrimSpace(field.Metadata["input"]); hint != "" {
		switch hint {
		case "text":
			return widgets.WidgetInput
		case widgets.WidgetSelect, widgets.WidgetDate, widgets.WidgetDecimal, widgets.WidgetCheckbox, widgets.WidgetInput:
			return hint
		}
	}
	if len(field.Config.Options) > 0 || field.Config.OptionsSource != "" {
		return widgets.WidgetSelect
	}
	switch field.Type {
	case model.FieldTypeDate:
		return widgets.WidgetDate
	case model.FieldTypeDecimal, model.FieldTypeNumber:
		return widgets.WidgetDecimal
	case model.FieldTypeCheckbox:
		return widgets.WidgetCheckbox
	case model.FieldTypeSelect:
		return widgets.WidgetSelect
	}
	return widgets.WidgetInput
}
