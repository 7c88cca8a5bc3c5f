package repo

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Class groups storage failures by what the client can learn from them.
type Class int

const (
	ClassUnknown Class = iota
	ClassUnique
	ClassForeignKey
	ClassNotNull
	ClassUnavailable
)

func (c Class) String() string {
	switch c {
	case ClassUnique:
		return "unique_violation"
	case ClassForeignKey:
		return "foreign_key_violation"
	case ClassNotNull:
		return "not_null_violation"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// SQLite extended result codes.
const (
	sqliteCantOpen          = 14
	sqliteConstraintFK      = 787
	sqliteConstraintNotNull = 1299
	sqliteConstraintPK      = 1555
	sqliteConstraintUnique  = 2067
)

// Classify inspects err (and everything it wraps) and reports which storage
// failure it represents. Errors that are not storage failures yield
// ClassUnknown.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ClassUnique
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ClassForeignKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ClassUnique
		case pgForeignKeyViolation:
			return ClassForeignKey
		case pgNotNullViolation:
			return ClassNotNull
		}
		return ClassUnknown
	}

	// modernc.org/sqlite (behind glebarez/sqlite) exposes extended codes.
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqliteConstraintUnique, sqliteConstraintPK:
			return ClassUnique
		case sqliteConstraintFK:
			return ClassForeignKey
		case sqliteConstraintNotNull:
			return ClassNotNull
		case sqliteCantOpen:
			return ClassUnavailable
		}
	}

	if isUnavailable(err) {
		return ClassUnavailable
	}

	// Some driver paths only surface plain text.
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "unique constraint"),
		strings.Contains(low, "duplicate key"),
		strings.Contains(low, "constraint failed: unique"):
		return ClassUnique
	case strings.Contains(low, "foreign key constraint"):
		return ClassForeignKey
	case strings.Contains(low, "not null constraint"),
		strings.Contains(low, "violates not-null"):
		return ClassNotNull
	case strings.Contains(low, "connection refused"),
		strings.Contains(low, "no such host"):
		return ClassUnavailable
	}
	return ClassUnknown
}

func isUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
