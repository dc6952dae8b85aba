// Package orchestrator drives one dynamic form end to end: it fetches the
// definition and its data, runs the decorators, keeps the editable state per
// session, renders through the renderer registry and submits the dirty values
// to the definition's workflow.
package orchestrator
