// Package config loads the vtree CLI configuration.
//
// Configuration is read from YAML (or JSON) or from CUE. CUE files are
// first unified with a built-in #Config schema, so constraint errors are
// reported with file positions before any Go-side validation runs. Either
// way the result is decoded over Default() and checked with struct tags.
//
// # Example
//
//	session: ui
//	telemetry:
//	  logging: {level: debug, format: json}
//	store:
//	  enabled: true
//	  path: history.db
//	watch:
//	  debounce: 250ms
//
// The same file in CUE:
//
//	session: "ui"
//	telemetry: logging: {level: "debug", format: "json"}
//	store: {enabled: true, path: "history.db"}
//	watch: debounce: "250ms"
package config
