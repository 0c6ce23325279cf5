package database

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"gorm.io/gorm"
)

// MySQL and SQL Server error numbers for constraint violations.
var (
	mysqlConstraintErrors = map[uint16]struct{}{
		1048: {}, // column cannot be null
		1062: {}, // duplicate entry
		1216: {}, // foreign key, no parent
		1217: {}, // foreign key, row is referenced
		1451: {},
		1452: {},
	}
	mssqlConstraintErrors = map[int32]struct{}{
		515:  {}, // cannot insert NULL
		547:  {}, // constraint conflict
		2601: {}, // duplicate key in unique index
		2627: {}, // primary key or unique constraint
	}
)

// IsIntegrityConflict reports whether err is a constraint violation raised by
// the database: duplicate keys, foreign keys, NOT NULL or CHECK constraints.
func IsIntegrityConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		_, ok := mysqlConstraintErrors[myErr.Number]
		return ok
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		_, ok := mssqlConstraintErrors[msErr.Number]
		return ok
	}

	return false
}
