// Package testdb opens a migrated SQLite database for tests.
package testdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

// Option tweaks the test database.
type Option func(*settings)

type settings struct {
	foreignKeys bool
	conns       int // 0: shared in-memory database on one connection
}

// WithoutForeignKeys leaves SQLite's foreign key enforcement off, which
// lets a test remove a product while cart lines still point at it.
func WithoutForeignKeys() Option {
	return func(s *settings) { s.foreignKeys = false }
}

// OnDisk backs the database with a WAL-mode file and lets up to conns
// connections run at once, so concurrent callers really interleave.
func OnDisk(conns int) Option {
	return func(s *settings) { s.conns = conns }
}

// Open returns a fresh database private to t, migrated to the latest
// schema. It is closed when t finishes.
func Open(t testing.TB, opts ...Option) *gorm.DB {
	t.Helper()

	s := settings{foreignKeys: true}
	for _, o := range opts {
		o(&s)
	}

	dsn := "file:" + sanitize(t.Name()) + "?mode=memory&cache=shared"
	pool := database.Options{MaxOpenConns: 1, MaxIdleConns: 1}
	if s.conns > 0 {
		// Writers queue on the busy timeout instead of failing with SQLITE_BUSY.
		dsn = "file:" + filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
		pool = database.Options{MaxOpenConns: s.conns, MaxIdleConns: s.conns}
	}
	if s.foreignKeys {
		dsn += "&_foreign_keys=1"
	}

	db, err := database.Open(context.Background(), "sqlite", dsn, pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = migration.New(db, nil).Run(context.Background())
	require.NoError(t, err)
	return db
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
