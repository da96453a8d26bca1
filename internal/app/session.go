package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Session serves reads from the loaded State and routes every write through
// the record store. Writes are serialized; reads never wait on the store.
type Session struct {
	store  repository.Store
	logger *slog.Logger

	writeMu sync.Mutex

	mu    sync.RWMutex
	state State
}

// NewSession creates a session with an empty state. Call Load before serving.
func NewSession(store repository.Store, logger *slog.Logger) *Session {
	return &Session{
		store:  store,
		logger: logger,
		state:  normalize(State{}),
	}
}

// Store returns the underlying record store.
func (s *Session) Store() repository.Store {
	return s.store
}

// =============================================================================
// Reads
// =============================================================================

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Client returns one client from the loaded state.
func (s *Session) Client(id string) (domain.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.Clients, id)
}

// Service returns one service from the loaded state.
func (s *Session) Service(id string) (domain.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.Services, id)
}

// Expense returns one expense from the loaded state.
func (s *Session) Expense(id string) (domain.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.Expenses, id)
}

func (s *Session) dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Reduce(s.state, a)
	return prev
}

// =============================================================================
// Load
// =============================================================================

// Load reads the three collections concurrently and replaces the state once
// all of them have been read. On error the state is left as it was.
func (s *Session) Load(ctx context.Context) error {
	const op = "session.load"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := s.read(ctx)
	if err != nil {
		return storeError(err, op, "records", "")
	}
	s.dispatch(Loaded{State: next})

	s.logger.Info("records loaded",
		"clients", len(next.Clients),
		"services", len(next.Services),
		"expenses", len(next.Expenses),
	)
	return nil
}

func (s *Session) read(ctx context.Context) (State, error) {
	var next State
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		next.Clients, err = s.store.Clients().List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		next.Services, err = s.store.Services().List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		next.Expenses, err = s.store.Expenses().List(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return State{}, err
	}
	for i := range next.Clients {
		next.Clients[i].Normalize()
	}
	return next, nil
}

// =============================================================================
// Saves
// =============================================================================

// SaveClient persists c and then publishes it to the state.
func (s *Session) SaveClient(ctx context.Context, c domain.Client) error {
	return save(ctx, s, "client.save", s.store.Clients(), c, ClientSaved{Client: c})
}

// SaveService persists v and then publishes it to the state.
func (s *Session) SaveService(ctx context.Context, v domain.Service) error {
	return save(ctx, s, "service.save", s.store.Services(), v, ServiceSaved{Service: v})
}

// SaveExpense persists e and then publishes it to the state.
func (s *Session) SaveExpense(ctx context.Context, e domain.Expense) error {
	return save(ctx, s, "expense.save", s.store.Expenses(), e, ExpenseSaved{Expense: e})
}

func save[T repository.Record](ctx context.Context, s *Session, op string, coll repository.Collection[T], rec T, a Action) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return persist(ctx, s, op, coll, rec, a)
}

// persist writes rec and publishes it. The caller holds writeMu.
func persist[T repository.Record](ctx context.Context, s *Session, op string, coll repository.Collection[T], rec T, a Action) error {
	if err := coll.Upsert(ctx, rec); err != nil {
		return storeError(err, op, "record", rec.RecordID())
	}
	s.dispatch(a)
	return nil
}

// UpdateClient applies fn to the current version of a client and saves the
// result. Writers are serialized, so fn always sees the latest record and no
// concurrent change is lost. If fn returns an error nothing is written.
func (s *Session) UpdateClient(ctx context.Context, id string, fn func(c *domain.Client) error) (domain.Client, error) {
	return update(ctx, s, "client.save", "client", id, s.Client, s.store.Clients(), fn,
		func(c domain.Client) Action { return ClientSaved{Client: c} })
}

// UpdateService is the service counterpart of UpdateClient. A service
// deleted before the lock is taken is reported as not found, never
// re-created.
func (s *Session) UpdateService(ctx context.Context, id string, fn func(v *domain.Service) error) (domain.Service, error) {
	return update(ctx, s, "service.save", "service", id, s.Service, s.store.Services(), fn,
		func(v domain.Service) Action { return ServiceSaved{Service: v} })
}

// UpdateExpense is the expense counterpart of UpdateClient.
func (s *Session) UpdateExpense(ctx context.Context, id string, fn func(e *domain.Expense) error) (domain.Expense, error) {
	return update(ctx, s, "expense.save", "expense", id, s.Expense, s.store.Expenses(), fn,
		func(e domain.Expense) Action { return ExpenseSaved{Expense: e} })
}

func update[T repository.Record](
	ctx context.Context,
	s *Session,
	op, resource, id string,
	get func(string) (T, bool),
	coll repository.Collection[T],
	fn func(*T) error,
	saved func(T) Action,
) (T, error) {
	var zero T

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, ok := get(id)
	if !ok {
		return zero, domain.NotFound(op, resource, id)
	}
	if err := fn(&rec); err != nil {
		return zero, err
	}
	if err := persist(ctx, s, op, coll, rec, saved(rec)); err != nil {
		return zero, err
	}
	return rec, nil
}

// =============================================================================
// Optimistic deletes
// =============================================================================

// DeleteClient removes the client from the state immediately, then from the
// store. If the store refuses, the state is rolled back to what it was
// before the delete and the error is returned.
func (s *Session) DeleteClient(ctx context.Context, id string) error {
	return s.remove(ctx, "client.delete", "client", id, s.store.Clients().Delete, ClientRemoved{ID: id})
}

// DeleteService is the service counterpart of DeleteClient.
func (s *Session) DeleteService(ctx context.Context, id string) error {
	return s.remove(ctx, "service.delete", "service", id, s.store.Services().Delete, ServiceRemoved{ID: id})
}

// DeleteExpense is the expense counterpart of DeleteClient.
func (s *Session) DeleteExpense(ctx context.Context, id string) error {
	return s.remove(ctx, "expense.delete", "expense", id, s.store.Expenses().Delete, ExpenseRemoved{ID: id})
}

func (s *Session) remove(ctx context.Context, op, resource, id string, del func(context.Context, string) error, a Action) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.contains(a, id) {
		return domain.NotFound(op, resource, id)
	}

	prev := s.dispatch(a)

	err := del(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		// Already gone from the store; the state now agrees.
		s.logger.Warn("record missing from store during delete", "op", op, "id", id)
		return nil
	}

	s.dispatch(RolledBack{State: prev})
	s.logger.Error("delete failed, state rolled back", "op", op, "id", id, "error", err)
	return storeError(err, op, resource, id)
}

func (s *Session) contains(a Action, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ok bool
	switch a.(type) {
	case ClientRemoved:
		_, ok = find(s.state.Clients, id)
	case ServiceRemoved:
		_, ok = find(s.state.Services, id)
	case ExpenseRemoved:
		_, ok = find(s.state.Expenses, id)
	}
	return ok
}

// =============================================================================
// Restore
// =============================================================================

// Restore writes a snapshot to the store and then reloads the whole state.
func (s *Session) Restore(ctx context.Context, snap domain.Snapshot) error {
	const op = "session.restore"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Restore(ctx, snap); err != nil {
		return storeError(err, op, "snapshot", "")
	}

	next, err := s.read(ctx)
	if err != nil {
		return storeError(err, op, "records", "")
	}
	s.dispatch(Loaded{State: next})
	return nil
}

// storeError maps repository errors onto domain errors.
func storeError(err error, op, resource, id string) error {
	switch {
	case errors.Is(err, repository.ErrCapacity):
		return domain.StorageFull(err, op)
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound(op, resource, id)
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.Internal(err, op, "record store operation failed")
}
