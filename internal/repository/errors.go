// Package repository holds the gorm-backed stores for analysts, companies
// and ESG audit records.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pulseesg/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")

	// ErrPayloadColumnUnavailable marks a failure caused by the optional
	// analysis_payload column not being provisioned in the store.
	ErrPayloadColumnUnavailable = errors.New("analysis payload column unavailable")
)

const (
	pgUndefinedColumn    = "42703"
	mysqlUnknownColumn   = 1054
	mysqlDuplicateEntry  = 1062
	pgUniqueViolation    = "23505"
	sqliteMissingColumn  = "no such column"
	sqliteMissingColumn2 = "has no column named"
)

// isPayloadColumnError reports whether err comes from the driver complaining
// about the analysis_payload column specifically.
func isPayloadColumnError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn && strings.Contains(pgErr.Message, models.PayloadColumn)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlUnknownColumn && strings.Contains(myErr.Message, models.PayloadColumn)
	}

	// sqlite surfaces plain text errors through mattn/go-sqlite3.
	msg := err.Error()
	return (strings.Contains(msg, sqliteMissingColumn) || strings.Contains(msg, sqliteMissingColumn2)) &&
		strings.Contains(msg, models.PayloadColumn)
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
