// Package config loads, normalizes, and validates the ncmdump TOML
// configuration.
//
// Lookup order is an explicit path, then ~/.config/ncmdump/config.toml, then
// ./ncmdump.toml, then built-in defaults. After decoding, paths are expanded,
// enumerations lower-cased, and numeric settings clamped before Validate runs.
package config
