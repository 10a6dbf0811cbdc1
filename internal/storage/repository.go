package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"apledger/internal/core"
	"apledger/internal/gateway"
	applog "apledger/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the ledger and notes in a local SQLite database.
// Saves replace a table's contents in one transaction; position preserves
// the caller's order.
type SQLiteRepository struct {
	db *sql.DB
}

var _ gateway.Gateway = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) LoadLedger(ctx context.Context) (gateway.LedgerLoad, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT due_date, vendor, currency, amount_foreign, exchange_rate, amount_base, status, recurring, id
		FROM obligations
		ORDER BY position`)
	if err != nil {
		return gateway.LedgerLoad{}, fmt.Errorf("%w: query obligations: %v", core.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	table := [][]string{gateway.LedgerColumns}
	for rows.Next() {
		var (
			due, vendor, currency, amount, rate, status, id string
			base                                          int64
			recurring                                     bool
		)
		if err := rows.Scan(&due, &vendor, &currency, &amount, &rate, &base, &status, &recurring, &id); err != nil {
			return gateway.LedgerLoad{}, fmt.Errorf("%w: scan obligation: %v", core.ErrStorageUnavailable, err)
		}
		table = append(table, []string{
			due, vendor, currency, amount, rate,
			strconv.FormatInt(base, 10), status, strconv.FormatBool(recurring), id,
		})
	}
	if err := rows.Err(); err != nil {
		return gateway.LedgerLoad{}, fmt.Errorf("%w: iterate obligations: %v", core.ErrStorageUnavailable, err)
	}

	load, err := gateway.DecodeLedger(table, gateway.DecodeOptions{})
	if err != nil {
		return gateway.LedgerLoad{}, err
	}
	if load.Dropped > 0 {
		slog.WarnContext(ctx, "Skipped undecodable obligations in SQLite",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldDropped, load.Dropped)
	}
	return load, nil
}

func (r *SQLiteRepository) SaveLedger(ctx context.Context, records []core.Obligation) error {
	return r.replace(ctx, "obligations", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO obligations
				(id, position, due_date, vendor, currency, amount_foreign, exchange_rate, amount_base, status, recurring)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, o := range records {
			if _, err := stmt.ExecContext(ctx,
				o.ID, i, o.DueDate.String(), o.Vendor, string(o.Money.Currency),
				o.Money.Foreign.String(), o.Money.Rate.String(), o.Money.Base(),
				string(o.Status), o.Recurring,
			); err != nil {
				return fmt.Errorf("insert %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadNotes(ctx context.Context) (gateway.NotesLoad, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT content, id FROM notes ORDER BY position`)
	if err != nil {
		return gateway.NotesLoad{}, fmt.Errorf("%w: query notes: %v", core.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	table := [][]string{gateway.NoteColumns}
	for rows.Next() {
		var content, id string
		if err := rows.Scan(&content, &id); err != nil {
			return gateway.NotesLoad{}, fmt.Errorf("%w: scan note: %v", core.ErrStorageUnavailable, err)
		}
		table = append(table, []string{content, id})
	}
	if err := rows.Err(); err != nil {
		return gateway.NotesLoad{}, fmt.Errorf("%w: iterate notes: %v", core.ErrStorageUnavailable, err)
	}
	return gateway.DecodeNotes(table, gateway.DecodeOptions{})
}

func (r *SQLiteRepository) SaveNotes(ctx context.Context, notes []core.Note) error {
	return r.replace(ctx, "notes", func(tx *sql.Tx) error {
		for i, n := range notes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO notes (id, position, content) VALUES (?, ?, ?)`,
				n.ID, i, n.Content,
			); err != nil {
				return fmt.Errorf("insert note %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// replace empties table and refills it through fill, all in one transaction.
func (r *SQLiteRepository) replace(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("%w: clear %s: %v", core.ErrStorageUnavailable, table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("%w: fill %s: %v", core.ErrStorageUnavailable, table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", core.ErrStorageUnavailable, table, err)
	}
	slog.DebugContext(ctx, "Replaced SQLite table", applog.FieldComponent, applog.ComponentStorage, "table", table)
	return nil
}
