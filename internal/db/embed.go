// Package db holds the embedded goose migrations for the reconciliation schema.
package db

import "embed"

// Migrations contains the SQL migrations under migrations/
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads
const MigrationsDir = "migrations"
