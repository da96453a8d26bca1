package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/DukeRupert/solartek/internal/domain"
)

// Fault lets tests fail a store operation. op is one of "list", "get",
// "upsert", "delete" or "restore"; id is empty for collection-wide ops.
type Fault func(op, table, id string) error

// MemoryStore keeps records in process memory as encoded JSON, so reads
// always return fresh copies. With a positive byte budget, writes that would
// take the encoded total over the budget fail with ErrCapacity.
type MemoryStore struct {
	mu       sync.RWMutex
	maxBytes int64
	used     int64
	fault    Fault

	clients  *memCollection[domain.Client]
	services *memCollection[domain.Service]
	expenses *memCollection[domain.Expense]
}

// NewMemoryStore creates an empty store. maxBytes <= 0 means unbounded.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	s := &MemoryStore{maxBytes: maxBytes}
	s.clients = newMemCollection[domain.Client](s, TableClients)
	s.services = newMemCollection[domain.Service](s, TableServices)
	s.expenses = newMemCollection[domain.Expense](s, TableExpenses)
	return s
}

func (s *MemoryStore) Clients() Collection[domain.Client]   { return s.clients }
func (s *MemoryStore) Services() Collection[domain.Service] { return s.services }
func (s *MemoryStore) Expenses() Collection[domain.Expense] { return s.expenses }

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// SetFault installs (or clears, with nil) a fault hook.
func (s *MemoryStore) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// UsedBytes returns the encoded size of everything stored.
func (s *MemoryStore) UsedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *MemoryStore) check(op, table, id string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, table, id)
}

func (s *MemoryStore) fits(used int64) error {
	if s.maxBytes > 0 && used > s.maxBytes {
		return fmt.Errorf("%w: %d of %d bytes", ErrCapacity, used, s.maxBytes)
	}
	return nil
}

// Restore replaces the collections present in snap. Either every present
// collection is replaced or none is.
func (s *MemoryStore) Restore(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("restore", "", ""); err != nil {
		return err
	}

	var staged []func()
	used := s.used

	if snap.Clients != nil {
		next, err := encodeAll(*snap.Clients)
		if err != nil {
			return err
		}
		used += next.size - s.clients.size()
		staged = append(staged, func() { s.clients.replace(next) })
	}
	if snap.Services != nil {
		next, err := encodeAll(*snap.Services)
		if err != nil {
			return err
		}
		used += next.size - s.services.size()
		staged = append(staged, func() { s.services.replace(next) })
	}
	if snap.Expenses != nil {
		next, err := encodeAll(*snap.Expenses)
		if err != nil {
			return err
		}
		used += next.size - s.expenses.size()
		staged = append(staged, func() { s.expenses.replace(next) })
	}

	if err := s.fits(used); err != nil {
		return err
	}
	for _, apply := range staged {
		apply()
	}
	s.used = used
	return nil
}

// =============================================================================
// Collection
// =============================================================================

type encoded struct {
	order []string
	docs  map[string][]byte
	size  int64
}

func encodeAll[T Record](recs []T) (encoded, error) {
	e := encoded{docs: make(map[string][]byte, len(recs))}
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return encoded{}, fmt.Errorf("marshal %s: %w", rec.RecordID(), err)
		}
		id := rec.RecordID()
		if old, dup := e.docs[id]; dup {
			e.size -= int64(len(old))
		} else {
			e.order = append(e.order, id)
		}
		e.docs[id] = data
		e.size += int64(len(data))
	}
	return e, nil
}

type memCollection[T Record] struct {
	store *MemoryStore
	table string
	data  encoded
}

func newMemCollection[T Record](s *MemoryStore, table string) *memCollection[T] {
	return &memCollection[T]{
		store: s,
		table: table,
		data:  encoded{docs: make(map[string][]byte)},
	}
}

func (c *memCollection[T]) size() int64 { return c.data.size }

func (c *memCollection[T]) replace(e encoded) { c.data = e }

func (c *memCollection[T]) List(ctx context.Context) ([]T, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if err := c.store.check("list", c.table, ""); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(c.data.order))
	for _, id := range c.data.order {
		var rec T
		if err := json.Unmarshal(c.data.docs[id], &rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", c.table, id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *memCollection[T]) Get(ctx context.Context, id string) (T, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var rec T
	if err := c.store.check("get", c.table, id); err != nil {
		return rec, err
	}
	data, ok := c.data.docs[id]
	if !ok {
		return rec, ErrNotFound
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s %s: %w", c.table, id, err)
	}
	return rec, nil
}

func (c *memCollection[T]) Upsert(ctx context.Context, rec T) error {
	id := rec.RecordID()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", c.table, id, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if err := c.store.check("upsert", c.table, id); err != nil {
		return err
	}

	old, exists := c.data.docs[id]
	delta := int64(len(data)) - int64(len(old))
	if err := c.store.fits(c.store.used + delta); err != nil {
		return err
	}

	if !exists {
		c.data.order = append(c.data.order, id)
	}
	c.data.docs[id] = data
	c.data.size += delta
	c.store.used += delta
	return nil
}

func (c *memCollection[T]) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if err := c.store.check("delete", c.table, id); err != nil {
		return err
	}
	old, ok := c.data.docs[id]
	if !ok {
		return ErrNotFound
	}

	delete(c.data.docs, id)
	for i, existing := range c.data.order {
		if existing == id {
			c.data.order = append(c.data.order[:i:i], c.data.order[i+1:]...)
			break
		}
	}
	c.data.size -= int64(len(old))
	c.store.used -= int64(len(old))
	return nil
}
