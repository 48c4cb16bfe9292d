// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the products and coupons tables. It is idempotent
// and safe to re-run on every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
