package client

import (
	"bytes"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrorEntry is one element of the envelope error[] array. Backends send
// either bare strings or {field, code, message} objects.
type ErrorEntry struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts both string and object entries.
func (e *ErrorEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var message string
		if err := json.Unmarshal(trimmed, &message); err != nil {
			return err
		}
		*e = ErrorEntry{Message: message}
		return nil
	}
	type plain ErrorEntry
	var out plain
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*e = ErrorEntry(out)
	return nil
}

// Status is the envelope status, encoded by backends as a number or a word.
type Status string

// UnmarshalJSON accepts numeric and string statuses.
func (s *Status) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = Status(strings.TrimSpace(raw))
		return nil
	}
	*s = Status(trimmed)
	return nil
}

// Code returns the numeric status when the envelope carries one.
func (s Status) Code() (int, bool) {
	code, err := strconv.Atoi(string(s))
	if err != nil {
		return 0, false
	}
	return code, true
}

// OK reports whether the status denotes success.
func (s Status) OK() bool {
	if code, ok := s.Code(); ok {
		return code >= 200 && code < 300
	}
	switch strings.ToLower(string(s)) {
	case "", "ok", "success", "succeeded", "true":
		return true
	}
	return false
}

// Envelope is the response shape shared by every back-office service.
type Envelope struct {
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ErrorEntry    `json:"error,omitempty"`
}

// IsValidResponse reports whether an envelope denotes a successful call: the
// status is a success status and error[] is empty.
func IsValidResponse(env *Envelope) bool {
	if env == nil {
		return false
	}
	return env.Status.OK() && len(env.Errors) == 0
}

// DecodeData unmarshals the envelope data into out. Empty data leaves out
// untouched.
func (e Envelope) DecodeData(out any) error {
	if len(bytes.TrimSpace(e.Data)) == 0 || string(bytes.TrimSpace(e.Data)) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// Messages flattens the error entries into display strings.
func (e Envelope) Messages() []string {
	out := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		if msg := strings.TrimSpace(entry.Message); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}
