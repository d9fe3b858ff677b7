package dbx

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// UniqueViolation reports whether err is a PostgreSQL unique constraint
// violation and returns the violated constraint name.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsConnectionError reports whether err means the store could not be reached,
// as opposed to the store rejecting the statement.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Wrap annotates a driver error. Connection failures additionally match
// common.ErrorStoreUnavailable. Errors that already carry a common
// condition, and sql.ErrNoRows, are returned unchanged.
func Wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, common.ErrorStoreUnavailable),
		errors.Is(err, common.ErrorDuplicateKey),
		errors.Is(err, common.ErrorNotFound):
		return err
	case IsConnectionError(err):
		return fmt.Errorf("db error: %w: %w", common.ErrorStoreUnavailable, err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

// WrapUnique is Wrap with unique violations translated through fields, a map
// from constraint (index) name to the user-facing field name. Unknown
// constraints still produce a DuplicateKeyError without a field.
func WrapUnique(err error, fields map[string]string) error {
	if constraint, ok := UniqueViolation(err); ok {
		return &common.DuplicateKeyError{Field: fields[constraint]}
	}
	return Wrap(err)
}
