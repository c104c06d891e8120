// Package migration runs and tracks schema migrations.
//
// Migrations register themselves from init():
//
//	func init() {
//	    migration.Register("20260101000001_create_products_table", &CreateProductsTable{})
//	}
//
// and run through the CLI:
//
//	storefront migrate
//	storefront migrate:rollback
//	storefront migrate:status
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "storefront_migrations" }

type entry struct {
	name string
	m    Migration
}

var (
	regMu    sync.Mutex
	registry []entry
)

// Register adds a migration. Names are timestamp prefixed and run in
// lexical order regardless of registration order.
func Register(name string, m Migration) {
	regMu.Lock()
	defer regMu.Unlock()
	for _, e := range registry {
		if e.name == name {
			panic(fmt.Sprintf("migration: %s registered twice", name))
		}
	}
	registry = append(registry, entry{name: name, m: m})
}

func registered() []entry {
	regMu.Lock()
	defer regMu.Unlock()
	out := append([]entry(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Runner executes migrations against one database and reports progress
// to out.
type Runner struct {
	db  *gorm.DB
	out io.Writer
}

func New(db *gorm.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, out: out}
}

func (r *Runner) ensureTable() error {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]record, len(rows))
	for _, rec := range rows {
		m[rec.Name] = rec
	}
	return m, nil
}

// Run applies every pending migration as one batch and returns how many ran.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	done, err := r.ran()
	if err != nil {
		return 0, fmt.Errorf("migration: fetch ran: %w", err)
	}

	var pending []entry
	for _, e := range registered() {
		if _, ok := done[e.name]; !ok {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return 0, nil
	}

	batch, err := r.lastBatch()
	if err != nil {
		return 0, err
	}
	batch++

	log := logger.WithCtx(ctx)
	db := r.db.WithContext(ctx)
	for _, e := range pending {
		fmt.Fprintf(r.out, "  Migrating: %s\n", e.name)
		if err := e.m.Up(db); err != nil {
			return 0, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		if err := db.Create(&record{Name: e.name, Batch: batch}).Error; err != nil {
			return 0, fmt.Errorf("migration: record %s: %w", e.name, err)
		}
		log.Info("migration applied", "name", e.name, "batch", batch)
	}
	return len(pending), nil
}

// Rollback reverts the most recent batch and returns how many were undone.
func (r *Runner) Rollback(ctx context.Context) (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	batch, err := r.lastBatch()
	if err != nil {
		return 0, err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return 0, nil
	}

	db := r.db.WithContext(ctx)
	var rows []record
	if err := db.Where("batch = ?", batch).Order("name DESC").Find(&rows).Error; err != nil {
		return 0, err
	}

	byName := make(map[string]Migration)
	for _, e := range registered() {
		byName[e.name] = e.m
	}

	for _, rec := range rows {
		m, ok := byName[rec.Name]
		if !ok {
			return 0, fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "  Rolling back: %s\n", rec.Name)
		if err := m.Down(db); err != nil {
			return 0, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := db.Delete(&rec).Error; err != nil {
			return 0, err
		}
		logger.WithCtx(ctx).Info("migration rolled back", "name", rec.Name)
	}
	return len(rows), nil
}

// StatusRow is one line of migrate:status.
type StatusRow struct {
	Name  string
	Ran   bool
	Batch int
}

func (r *Runner) Status() ([]StatusRow, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.ran()
	if err != nil {
		return nil, err
	}
	var rows []StatusRow
	for _, e := range registered() {
		rec, ok := done[e.name]
		rows = append(rows, StatusRow{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return rows, nil
}

func (r *Runner) lastBatch() (int, error) {
	var last sql.NullInt64
	if err := r.db.Model(&record{}).Select("MAX(batch)").Row().Scan(&last); err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return int(last.Int64), nil
}
