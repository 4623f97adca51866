// Package config loads, validates, and defaults the TOML configuration that
// drives the demusic daemon and CLI.
//
// Configuration resolves from an explicit --config path or
// ~/.config/demusic/config.toml, falling back to built-in defaults when no
// file exists. Path fields are tilde-expanded and absolutized during load so
// downstream code never handles relative or unexpanded paths.
package config
