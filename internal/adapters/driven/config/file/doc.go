// Package file implements TOML-backed configuration storage.
//
// Configuration lives in ~/.taskbridge/config.toml by default. Nested TOML
// tables flatten to dot-notation keys ("broker.url"), and typed settings are
// built on top via LoadSettings, which also applies TASKBRIDGE_* environment
// overrides.
package file
