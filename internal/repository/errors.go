package repository

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when a record breaks a declared
	// presence, length or membership rule. Nothing is written.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Postgres SQLSTATE codes
const (
	pgNotNullViolation = "23502"
	pgStringTooLong    = "22001"
	pgCheckViolation   = "23514"
	pgInvalidText      = "22P02"
)

// MySQL server error numbers
const (
	myBadNull           = 1048
	myNoDefaultField    = 1364
	myTruncatedWrongVal = 1366
	myDataTooLong       = 1406
	myCheckConstraint   = 3819
)

// translateError maps driver errors onto the repository sentinels.
// Context and connectivity errors are wrapped untouched.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}

	if isConstraintError(err) {
		return fmt.Errorf("%s: %w: %v", entity, ErrConstraintViolation, err)
	}

	return fmt.Errorf("%s: %w", entity, err)
}

func isConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation, pgStringTooLong, pgCheckViolation, pgInvalidText:
			return true
		}
		return false
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myBadNull, myNoDefaultField, myDataTooLong, myCheckConstraint, myTruncatedWrongVal:
			return true
		}
		return false
	}

	// SQLite reports constraint failures only through the message.
	msg := err.Error()
	return strings.Contains(msg, "NOT NULL constraint failed") ||
		strings.Contains(msg, "CHECK constraint failed")
}
