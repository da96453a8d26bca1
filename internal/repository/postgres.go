package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore keeps each collection as a table of JSONB documents.
type PostgresStore struct {
	db       *sql.DB
	clients  *pgCollection[domain.Client]
	services *pgCollection[domain.Service]
	expenses *pgCollection[domain.Expense]
}

// NewPostgresStore wraps an open database. The schema is created by the
// embedded migrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		clients:  &pgCollection[domain.Client]{db: db, table: TableClients},
		services: &pgCollection[domain.Service]{db: db, table: TableServices},
		expenses: &pgCollection[domain.Expense]{db: db, table: TableExpenses},
	}
}

func (s *PostgresStore) Clients() Collection[domain.Client]   { return s.clients }
func (s *PostgresStore) Services() Collection[domain.Service] { return s.services }
func (s *PostgresStore) Expenses() Collection[domain.Expense] { return s.expenses }

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Restore replaces the collections present in snap inside one transaction.
func (s *PostgresStore) Restore(ctx context.Context, snap domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if snap.Clients != nil {
		if err := replaceAll(ctx, tx, TableClients, *snap.Clients); err != nil {
			return err
		}
	}
	if snap.Services != nil {
		if err := replaceAll(ctx, tx, TableServices, *snap.Services); err != nil {
			return err
		}
	}
	if snap.Expenses != nil {
		if err := replaceAll(ctx, tx, TableExpenses, *snap.Expenses); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit restore: %w", err))
	}
	return nil
}

func replaceAll[T Record](ctx context.Context, tx *sql.Tx, table string, recs []T) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return mapError(fmt.Errorf("clear %s: %w", table, err))
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL(table))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", table, rec.RecordID(), err)
		}
		if _, err := stmt.ExecContext(ctx, rec.RecordID(), data); err != nil {
			return mapError(fmt.Errorf("insert %s %s: %w", table, rec.RecordID(), err))
		}
	}
	return nil
}

func upsertSQL(table string) string {
	return `INSERT INTO ` + table + ` (id, data) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
}

// =============================================================================
// Collection
// =============================================================================

type pgCollection[T Record] struct {
	db    *sql.DB
	table string
}

func (c *pgCollection[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT data FROM "+c.table+" ORDER BY seq")
	if err != nil {
		return nil, mapError(fmt.Errorf("list %s: %w", c.table, err))
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.table, err)
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("list %s: %w", c.table, err))
	}
	return out, nil
}

func (c *pgCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	var data []byte
	err := c.db.QueryRowContext(ctx, "SELECT data FROM "+c.table+" WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, mapError(fmt.Errorf("get %s %s: %w", c.table, id, err))
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s %s: %w", c.table, id, err)
	}
	return rec, nil
}

func (c *pgCollection[T]) Upsert(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", c.table, rec.RecordID(), err)
	}
	if _, err := c.db.ExecContext(ctx, upsertSQL(c.table), rec.RecordID(), data); err != nil {
		return mapError(fmt.Errorf("upsert %s %s: %w", c.table, rec.RecordID(), err))
	}
	return nil
}

func (c *pgCollection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+c.table+" WHERE id = $1", id)
	if err != nil {
		return mapError(fmt.Errorf("delete %s %s: %w", c.table, id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.table, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Error mapping
// =============================================================================

// IsCapacityError reports whether a Postgres error means the server ran out
// of room: SQLSTATE class 53 (insufficient resources, e.g. disk_full) or
// 54000 (program_limit_exceeded, e.g. a document over the size limit).
func IsCapacityError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "53") || pgErr.Code == "54000"
}

// mapError tags capacity failures with ErrCapacity, keeping the cause.
func mapError(err error) error {
	if IsCapacityError(err) {
		return fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	return err
}
