// Package model defines the form-definition IR shared by the dispatcher,
// renderers, validation, and the orchestrator. Definitions arrive from the
// backend as JSON (or YAML on disk) and are treated as read-only once
// decorated; runtime values live in Values and in formstate.
package model
