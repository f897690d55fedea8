// Package db embeds the SQL files the storefront needs at startup.
package db

import _ "embed"

// Schema holds the full DDL for the storefront tables, applied by the
// migration runner on boot.
//
//go:embed migrations/001_schema.sql
var Schema string
