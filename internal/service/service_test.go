package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/repository"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time { return fixedNow }

// newTestSession loads a session over a fresh memory store seeded with recs.
func newTestSession(t *testing.T, clients []domain.Client, services []domain.Service, expenses []domain.Expense) (*app.Session, *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore(0)
	for _, c := range clients {
		require.NoError(t, store.Clients().Upsert(ctx, c))
	}
	for _, s := range services {
		require.NoError(t, store.Services().Upsert(ctx, s))
	}
	for _, e := range expenses {
		require.NoError(t, store.Expenses().Upsert(ctx, e))
	}
	session := app.NewSession(store, testLogger())
	require.NoError(t, session.Load(ctx))
	return session, store
}

func seedClient(id, name string) domain.Client {
	c := domain.NewClient(fixedNow.AddDate(0, -1, 0))
	c.ID = id
	c.Name = name
	return c
}
