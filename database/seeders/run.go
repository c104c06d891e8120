// Package seeders fills a fresh database with an admin account and a small
// sample catalogue.
//
// A seeder registers itself from init():
//
//	func init() {
//	    Register("admin user", seedAdmin)
//	}
//
// and runs with: storefront seed
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"
)

// SeederFunc must be idempotent: seed runs against databases that may
// already hold data.
type SeederFunc func(ctx context.Context, db *gorm.DB) error

type seeder struct {
	name string
	fn   SeederFunc
}

var (
	mu       sync.Mutex
	registry []seeder
)

// Register panics on a duplicate name.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range registry {
		if s.name == name {
			panic("seeders: duplicate seeder " + name)
		}
	}
	registry = append(registry, seeder{name: name, fn: fn})
}

// RunAll runs every seeder in registration order, each in its own
// transaction, and stops at the first failure. Progress goes to out.
func RunAll(ctx context.Context, db *gorm.DB, out io.Writer) error {
	mu.Lock()
	list := append([]seeder(nil), registry...)
	mu.Unlock()

	for _, s := range list {
		fmt.Fprintf(out, "  %-10s ", s.name)
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.fn(ctx, tx)
		})
		if err != nil {
			fmt.Fprintln(out, "failed")
			return fmt.Errorf("seeder %q: %w", s.name, err)
		}
		fmt.Fprintln(out, "ok")
	}
	return nil
}
