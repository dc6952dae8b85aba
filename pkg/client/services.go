package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/tidwall/gjson"
)

// WorkflowService executes named backend workflows.
type WorkflowService struct{ c *Client }

type workflowRequest struct {
	WorkflowID string `json:"workflowid"`
	Data       any    `json:"data,omitempty"`
}

// Execute posts payload to the workflow identified by workflowID.
func (s *WorkflowService) Execute(ctx context.Context, session Session, workflowID string, payload any) (Envelope, error) {
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return Envelope{}, fmt.Errorf("client: workflow id is required")
	}
	spec, err := jsonCall(serviceWorkflow, "workflow."+workflowID, http.MethodPost,
		joinURL(s.c.cfg.WorkflowURL, "execute"),
		workflowRequest{WorkflowID: workflowID, Data: payload})
	if err != nil {
		return Envelope{}, err
	}
	return s.c.do(ctx, session, spec)
}

// DataService reads form definitions, form data, and option lists.
type DataService struct{ c *Client }

// FormDefinition fetches the form definition for formCode.
func (s *DataService) FormDefinition(ctx context.Context, session Session, formCode string) (model.FormDefinition, error) {
	formCode = strings.TrimSpace(formCode)
	if formCode == "" {
		return model.FormDefinition{}, fmt.Errorf("client: form code is required")
	}
	spec := call{
		service: serviceData,
		op:      "data.form_definition",
		method:  http.MethodGet,
		url:     joinURL(s.c.cfg.DataURL, "forms", url.PathEscape(formCode)),
	}
	env, err := s.c.do(ctx, session, spec)
	if err != nil {
		return model.FormDefinition{}, err
	}
	form, err := model.ParseDefinition(env.Data)
	if err != nil {
		return model.FormDefinition{}, fmt.Errorf("client: form definition %q: %w", formCode, err)
	}
	return form, nil
}

// FormData loads the data payload for a form through its load workflow.
func (s *DataService) FormData(ctx context.Context, session Session, workflowID string, params map[string]any) (model.Values, error) {
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return model.Values{}, nil
	}
	spec, err := jsonCall(serviceData, "data.form_data", http.MethodPost,
		joinURL(s.c.cfg.DataURL, "data", url.PathEscape(workflowID)), params)
	if err != nil {
		return nil, err
	}
	env, err := s.c.do(ctx, session, spec)
	if err != nil {
		return nil, err
	}
	values := model.Values{}
	if err := env.DecodeData(&values); err != nil {
		return nil, fmt.Errorf("client: decode form data: %w", err)
	}
	return values, nil
}

// Options fetches option rows for a field config and projects them through
// its key mapping. Static options short-circuit the call.
func (s *DataService) Options(ctx context.Context, session Session, cfg model.FieldConfig, query string) ([]model.Option, error) {
	if len(cfg.Options) > 0 || strings.TrimSpace(cfg.OptionsSource) == "" {
		return filterOptions(cfg.Options, query), nil
	}
	target := joinURL(s.c.cfg.DataURL, "options", url.PathEscape(cfg.OptionsSource))
	if query = strings.TrimSpace(query); query != "" {
		target += "?q=" + url.QueryEscape(query)
	}
	spec := call{service: serviceData, op: "data.options", method: http.MethodGet, url: target}
	env, err := s.c.do(ctx, session, spec)
	if err != nil {
		return nil, err
	}
	return ProjectOptions(env.Data, cfg.OptionsPath, cfg.KeyMapping), nil
}

// ProjectOptions maps raw option rows into label/value pairs. path is a gjson
// path to the row array inside raw (empty means raw is the array); mapping
// keys default to label/value with name/id as secondary fallbacks.
func ProjectOptions(raw []byte, path string, mapping model.KeyMapping) []model.Option {
	doc := gjson.ParseBytes(raw)
	if path = strings.TrimSpace(path); path != "" {
		doc = doc.Get(path)
	}
	if !doc.IsArray() {
		return nil
	}
	labelKeys := keysWithFallback(mapping.Label, "label", "name")
	valueKeys := keysWithFallback(mapping.Value, "value", "id")

	var out []model.Option
	doc.ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			value := row.String()
			out = append(out, model.Option{Label: value, Value: value})
			return true
		}
		value := firstPresent(row, valueKeys)
		label := firstPresent(row, labelKeys)
		if value == "" {
			return true
		}
		if label == "" {
			label = value
		}
		out = append(out, model.Option{Label: label, Value: value})
		return true
	})
	return out
}

func keysWithFallback(primary string, fallbacks ...string) []string {
	keys := make([]string, 0, len(fallbacks)+1)
	if primary = strings.TrimSpace(primary); primary != "" {
		keys = append(keys, primary)
	}
	return append(keys, fallbacks...)
}

func firstPresent(row gjson.Result, keys []string) string {
	for _, key := range keys {
		if value := row.Get(key); value.Exists() {
			if text := strings.TrimSpace(value.String()); text != "" {
				return text
			}
		}
	}
	return ""
}

func filterOptions(options []model.Option, query string) []model.Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]model.Option(nil), options...)
	}
	var out []model.Option
	for _, option := range options {
		if strings.Contains(strings.ToLower(option.Label), query) || strings.Contains(strings.ToLower(option.Value), query) {
			out = append(out, option)
		}
	}
	return out
}

// SystemService wraps the auth/system API.
type SystemService struct{ c *Client }

// VerifyPassword re-verifies the session user's password before a sensitive
// field can be edited. 401/403 answers map to ErrInvalidPassword.
func (s *SystemService) VerifyPassword(ctx context.Context, session Session, password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	spec, err := jsonCall(serviceSystem, "system.verify_password", http.MethodPost,
		joinURL(s.c.cfg.SystemURL, "auth", "verify-password"),
		map[string]string{"password": password})
	if err != nil {
		return err
	}
	env, err := s.c.do(ctx, session, spec)
	if err != nil {
		switch StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
		}
		return err
	}
	var verdict struct {
		Valid *bool `json:"valid"`
	}
	if err := env.DecodeData(&verdict); err == nil && verdict.Valid != nil && !*verdict.Valid {
		return ErrInvalidPassword
	}
	return nil
}
