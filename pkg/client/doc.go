// Package client is the typed REST client for the back-office services
// (workflow, data, system, cdn). Every call carries the session bearer token
// and locale, decodes the {status, data, error[]} envelope, and classifies
// failures into network, HTTP, business-rule, and upload-conflict errors.
// Nothing is retried: a failed call is terminal for the user action.
package client
