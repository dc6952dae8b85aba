// Package authz decides which form fields an operator role may edit. Policies
// are casbin RBAC lines over (role, form code, field code, action); form and
// field patterns accept a trailing "*".
package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// ActionEdit is the action checked before a field stays modifiable.
const ActionEdit = "edit"

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

// ParseMode reads a configured mode. Empty means enforce.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.TrimSpace(strings.ToLower(raw))); mode {
	case "":
		return ModeEnforce, nil
	case ModeEnforce, ModeShadow, ModeDisabled:
		return mode, nil
	default:
		return "", fmt.Errorf("authz: invalid mode %q (expected enforce|shadow|disabled)", raw)
	}
}

const modelText = `
[request_definition]
r = sub, form, field, act

[policy_definition]
p = sub, form, field, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.form, p.form) && keyMatch(r.field, p.field) && (r.act == p.act || p.act == "*")
`

// Config describes where policies come from.
type Config struct {
	Mode Mode
	// Policies are inline CSV lines: "p, role:teller, wallet-*, *, edit" or
	// "g, role:supervisor, role:teller".
	Policies []string
	// PolicyFile is an optional casbin CSV policy file loaded first.
	PolicyFile string
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
	log      logrus.FieldLogger
}

// New builds an Authorizer from the embedded model and the configured
// policies.
func New(cfg Config, logger logrus.FieldLogger) (*Authorizer, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeEnforce
	}
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if path := strings.TrimSpace(cfg.PolicyFile); path != "" {
		enforcer, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(path))
	} else {
		enforcer, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("authz: enforcer: %w", err)
	}

	for idx, line := range cfg.Policies {
		if err := addPolicyLine(enforcer, line); err != nil {
			return nil, fmt.Errorf("authz: policy %d: %w", idx+1, err)
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Authorizer{enforcer: enforcer, mode: mode, log: logger}, nil
}

func addPolicyLine(enforcer *casbin.Enforcer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	parts := strings.Split(line, ",")
	for idx := range parts {
		parts[idx] = strings.TrimSpace(parts[idx])
	}
	params := make([]any, 0, len(parts)-1)
	for _, part := range parts[1:] {
		params = append(params, part)
	}
	switch parts[0] {
	case "p":
		if len(params) != 4 {
			return fmt.Errorf("expected 4 values after p, got %d", len(params))
		}
		_, err := enforcer.AddPolicy(params...)
		return err
	case "g":
		if len(params) != 2 {
			return fmt.Errorf("expected 2 values after g, got %d", len(params))
		}
		_, err := enforcer.AddGroupingPolicy(params...)
		return err
	default:
		return fmt.Errorf("unknown policy type %q", parts[0])
	}
}

// Subject maps a session role onto a policy subject.
func Subject(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// Authorize checks one (role, form, field, action) tuple. enforced is false
// when the decision is not applied (shadow or disabled mode).
func (a *Authorizer) Authorize(role, formCode, fieldCode, action string) (allowed bool, enforced bool, err error) {
	if a == nil {
		return false, false, errors.New("authz: authorizer is nil")
	}
	switch a.mode {
	case ModeDisabled:
		return true, false, nil
	case ModeShadow, ModeEnforce:
		ok, err := a.enforcer.Enforce(Subject(role), formCode, fieldCode, action)
		if err != nil {
			return false, a.mode == ModeEnforce, err
		}
		return ok, a.mode == ModeEnforce, nil
	default:
		return false, false, errors.New("authz: unknown mode")
	}
}

// CanEdit reports whether the role may edit the field. Enforcement errors
// deny.
func (a *Authorizer) CanEdit(role, formCode, fieldCode string) bool {
	allowed, enforced, err := a.Authorize(role, formCode, fieldCode, ActionEdit)
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"form_code": formCode, "field": fieldCode}).Warn("authz check failed")
		return !enforced
	}
	if !allowed && !enforced {
		a.log.WithFields(logrus.Fields{"role": role, "form_code": formCode, "field": fieldCode}).Info("authz shadow deny")
		return true
	}
	return allowed
}

// DecorateFor clears IsModify on every field the session role may not edit.
func (a *Authorizer) DecorateFor(session client.Session, form *model.FormDefinition) error {
	if a == nil || form == nil {
		return nil
	}
	for idx := range form.Fields {
		field := &form.Fields[idx]
		if field.IsModify && !a.CanEdit(session.Role, form.FormCode, field.Code) {
			field.IsModify = false
		}
	}
	return nil
}
