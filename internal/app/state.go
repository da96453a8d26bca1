// Package app holds the in-process view of every record and keeps it in step
// with the record store.
//
// The view is an explicit State value that changes only through Reduce, so
// every transition (including rollbacks) is a plain function of the previous
// state and an action.
package app

import (
	"slices"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/repository"
)

// State is the loaded contents of the three collections, in store order.
type State struct {
	Clients  []domain.Client
	Services []domain.Service
	Expenses []domain.Expense
}

// Clone returns a copy whose slices can be changed without affecting s.
func (s State) Clone() State {
	return State{
		Clients:  slices.Clone(s.Clients),
		Services: slices.Clone(s.Services),
		Expenses: slices.Clone(s.Expenses),
	}
}

// =============================================================================
// Actions
// =============================================================================

// Action is a state transition understood by Reduce.
type Action interface {
	action()
}

// Loaded replaces the whole state with freshly read collections.
type Loaded struct{ State State }

// RolledBack restores a state captured before a failed write.
type RolledBack struct{ State State }

type ClientSaved struct{ Client domain.Client }
type ClientRemoved struct{ ID string }
type ServiceSaved struct{ Service domain.Service }
type ServiceRemoved struct{ ID string }
type ExpenseSaved struct{ Expense domain.Expense }
type ExpenseRemoved struct{ ID string }

func (Loaded) action()         {}
func (RolledBack) action()     {}
func (ClientSaved) action()    {}
func (ClientRemoved) action()  {}
func (ServiceSaved) action()   {}
func (ServiceRemoved) action() {}
func (ExpenseSaved) action()   {}
func (ExpenseRemoved) action() {}

// Reduce returns the state that results from applying a to s. s itself is
// never modified. Saving a record replaces it in place or appends it;
// removing an unknown id is a no-op.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Loaded:
		return normalize(a.State.Clone())
	case RolledBack:
		return normalize(a.State.Clone())
	case ClientSaved:
		s.Clients = upsert(s.Clients, a.Client)
	case ClientRemoved:
		s.Clients = remove(s.Clients, a.ID)
	case ServiceSaved:
		s.Services = upsert(s.Services, a.Service)
	case ServiceRemoved:
		s.Services = remove(s.Services, a.ID)
	case ExpenseSaved:
		s.Expenses = upsert(s.Expenses, a.Expense)
	case ExpenseRemoved:
		s.Expenses = remove(s.Expenses, a.ID)
	}
	return s
}

func normalize(s State) State {
	if s.Clients == nil {
		s.Clients = []domain.Client{}
	}
	if s.Services == nil {
		s.Services = []domain.Service{}
	}
	if s.Expenses == nil {
		s.Expenses = []domain.Expense{}
	}
	return s
}

func upsert[T repository.Record](list []T, rec T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if out[i].RecordID() == rec.RecordID() {
			out[i] = rec
			return out
		}
	}
	return append(out, rec)
}

func remove[T repository.Record](list []T, id string) []T {
	out := make([]T, 0, len(list))
	for _, rec := range list {
		if rec.RecordID() != id {
			out = append(out, rec)
		}
	}
	return out
}

func find[T repository.Record](list []T, id string) (T, bool) {
	for _, rec := range list {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}
