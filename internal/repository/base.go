// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"cityevents/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// readDB returns the replica when one is configured, else the repository's own handle.
// Reads that must observe a write made in the same request use the primary instead.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil && database.DB != nil && db != database.DB {
		return db
	}
	return primary
}

// isUniqueConstraintError reports a unique index violation from Postgres or SQLite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// isForeignKeyError reports a foreign key violation from Postgres or SQLite.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
