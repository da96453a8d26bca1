package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DukeRupert/solartek/internal"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCapacityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"disk full", &pgconn.PgError{Code: "53100"}, true},
		{"out of memory", &pgconn.PgError{Code: "53200"}, true},
		{"program limit", &pgconn.PgError{Code: "54000"}, true},
		{"wrapped", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "53100"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCapacityError(tt.err))
		})
	}
}

func TestMapError(t *testing.T) {
	err := mapError(fmt.Errorf("upsert clients cli_1: %w", &pgconn.PgError{Code: "53100", Message: "could not extend file"}))
	assert.ErrorIs(t, err, ErrCapacity)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)

	assert.NotErrorIs(t, mapError(errors.New("timeout")), ErrCapacity)
}

// openTestDB connects to SOLARTEK_TEST_DATABASE_URL and applies migrations.
// Tests using it are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("SOLARTEK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SOLARTEK_TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, internal.RunMigrations(ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil))))
	for _, table := range []string{TableClients, TableServices, TableExpenses, "jobs"} {
		_, err := db.ExecContext(ctx, "TRUNCATE "+table)
		require.NoError(t, err)
	}
	return db
}

func TestPostgresStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewPostgresStore(db)

	require.NoError(t, s.Clients().Upsert(ctx, testClient("cli_1", "Ana")))
	require.NoError(t, s.Clients().Upsert(ctx, testClient("cli_2", "Bruno")))
	require.NoError(t, s.Clients().Upsert(ctx, testClient("cli_1", "Ana Maria")))

	list, err := s.Clients().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cli_1", "cli_2"}, ids(list))
	assert.Equal(t, "Ana Maria", list[0].Name)

	assert.ErrorIs(t, s.Clients().Delete(ctx, "cli_missing"), ErrNotFound)
	_, err = s.Clients().Get(ctx, "cli_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Expenses().Upsert(ctx, domain.Expense{ID: "exp_1"}))
	restored := []domain.Client{testClient("cli_r", "Restored")}
	require.NoError(t, s.Restore(ctx, domain.Snapshot{Clients: &restored}))

	list, err = s.Clients().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cli_r"}, ids(list))

	expenses, err := s.Expenses().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exp_1"}, ids(expenses))
}

func TestPostgresJobQueue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	q := NewPostgresJobQueue(db)

	enq, err := q.EnqueueJob(ctx, EnqueueJobParams{JobType: "enrich_location", Payload: []byte(`{"client_id":"cli_1"}`), Priority: 10, MaxAttempts: 1, ScheduledAt: time.Now().Add(-time.Second)})
	require.NoError(t, err)

	job, err := q.DequeueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, enq.ID, job.ID)
	assert.Equal(t, int32(1), job.Attempts)
	assert.JSONEq(t, `{"client_id":"cli_1"}`, string(job.Payload))

	_, err = q.DequeueJob(ctx)
	assert.ErrorIs(t, err, ErrNoJobs)

	require.NoError(t, q.FailJob(ctx, job, "lookup failed", false))
	_, err = q.DequeueJob(ctx)
	assert.ErrorIs(t, err, ErrNoJobs, "max attempts reached")
}
