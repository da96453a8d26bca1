// Package repository persists records and background jobs.
//
// Every collection is keyed by record id and supports atomic upsert and
// delete of a single record; there is no whole-collection read-modify-write.
package repository

import (
	"context"
	"errors"

	"github.com/DukeRupert/solartek/internal/domain"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("repository: record not found")

	// ErrCapacity is returned when the backing store has no room for a
	// write. It is distinct from other I/O failures: retrying will not help
	// until space is freed.
	ErrCapacity = errors.New("repository: storage capacity exceeded")

	// ErrNoJobs is returned by DequeueJob when nothing is ready to run.
	ErrNoJobs = errors.New("repository: no jobs available")
)

// Record is anything stored in a collection.
type Record interface {
	RecordID() string
}

// Collection is a keyed set of records. List returns an empty, non-nil slice
// when the collection is empty, ordered by first insertion.
type Collection[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Upsert(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
}

// Store groups the three record collections.
type Store interface {
	Clients() Collection[domain.Client]
	Services() Collection[domain.Service]
	Expenses() Collection[domain.Expense]

	// Restore replaces every collection present in the snapshot, atomically.
	// Collections absent from the snapshot are left untouched.
	Restore(ctx context.Context, snap domain.Snapshot) error

	Ping(ctx context.Context) error
}

// Table names, one per collection.
const (
	TableClients  = "clients"
	TableServices = "services"
	TableExpenses = "expenses"
)
