// Package lookups serves option lists for select and checkbox-group fields
// over HTTP. Sources are either static option lists or backend option
// endpoints reached through the data client; results are searched and
// clamped before being returned as JSON options.
//
// The handler answers GET and HEAD with {"data":[{"label":..,"value":..}]}.
package lookups
