// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a unique key,
// such as a second user with the same email, or when a delete is refused
// because other rows still reference the target. Services translate this
// into a 400 response with per-field details.
var ErrConflict = errors.New("conflict")

// MySQL error numbers mapped to ErrConflict.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlRowReferenced  = 1451 // ER_ROW_IS_REFERENCED_2
)

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isReferenced reports whether a delete was refused by a foreign key,
// e.g. a role still assigned to users.
func isReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlRowReferenced
}

// mapErr converts driver errors into the package sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isDuplicate(err), isReferenced(err):
		return ErrConflict
	default:
		return err
	}
}

// nullable stores empty strings as NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
