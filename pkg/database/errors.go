package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// MySQL server error numbers.
const (
	mysqlDupEntry         = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow2 = 1452
)

// IsForeignKeyViolation reports whether err came from a foreign key check.
// gorm's TranslateError covers most dialects; the driver checks catch errors
// that reach us untranslated (raw Exec, Rows).
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoReferencedRow2 || myErr.Number == mysqlRowIsReferenced
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
