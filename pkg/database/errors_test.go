package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("wrap: %w", gorm.ErrForeignKeyViolated), true},
		{"mysql 1452", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, true},
		{"mysql dup", &mysql.MySQLError{Number: 1062}, false},
		{"sqlite fk", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsForeignKeyViolation(tt.err))
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateKey(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, IsDuplicateKey(errors.New("nope")))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", "file:open_test?mode=memory&cache=shared", Options{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}
