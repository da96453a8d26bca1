// Package service contains the business logic layer.
//
// This file implements the client service: creating and editing client
// records, moving them through the project stages and handing address
// enrichment to the background worker.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/metrics"
	"github.com/DukeRupert/solartek/internal/repository"
	"github.com/DukeRupert/solartek/internal/worker"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ClientService defines the interface for client-related operations.
type ClientService interface {
	// List returns every client in creation order.
	List(ctx context.Context) []domain.Client

	// Get returns one client.
	// Returns domain.ENOTFOUND if the client does not exist.
	Get(ctx context.Context, id string) (*domain.Client, error)

	// Detail returns a client together with its timeline and services.
	// Returns domain.ENOTFOUND if the client does not exist.
	Detail(ctx context.Context, id string) (*ClientDetail, error)

	// Create creates a new client at the first project stage, or at
	// params.Status when one is given.
	// Returns domain.EINVALID for validation errors and domain.ESTORAGEFULL
	// when the record store has no room left.
	Create(ctx context.Context, params domain.ClientInput) (*domain.Client, error)

	// Update replaces the editable fields of a client. A different status is
	// applied through SetStatus so the stage date is recorded.
	// Returns domain.ENOTFOUND if the client does not exist.
	// Returns domain.EINVALID for validation errors.
	Update(ctx context.Context, id string, params domain.ClientInput) (*domain.Client, error)

	// SetStatus moves a client to a project stage, recording today's date.
	// Returns domain.ENOTFOUND if the client does not exist.
	// Returns domain.EINVALID if status is not a project stage.
	SetStatus(ctx context.Context, id string, status domain.Stage) (*domain.Client, error)

	// Delete removes a client. The removal is visible immediately and rolled
	// back if the store refuses it.
	// Returns domain.ENOTFOUND if the client does not exist.
	Delete(ctx context.Context, id string) error

	// Sheet renders the plain-text client sheet.
	// Returns domain.ENOTFOUND if the client does not exist.
	Sheet(ctx context.Context, id string) (string, error)
}

// ClientDetail is a client with the data derived from it.
type ClientDetail struct {
	Client   domain.Client         `json:"client"`
	Timeline []domain.TimelineStep `json:"timeline"`
	Services []domain.Service      `json:"services"`
}

// =============================================================================
// Implementation
// =============================================================================

// clientService implements the ClientService interface.
type clientService struct {
	session *app.Session
	queue   repository.JobQueue
	logger  *slog.Logger
	now     func() time.Time
}

// NewClientService creates a new ClientService.
//
// Parameters:
// - session: Loaded record state backed by the record store
// - queue: Job queue for location enrichment (nil disables enrichment)
// - logger: Structured logger for operation logging
func NewClientService(
	session *app.Session,
	queue repository.JobQueue,
	logger *slog.Logger,
) ClientService {
	return &clientService{
		session: session,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
}

// =============================================================================
// Reads
// =============================================================================

// List returns every client.
func (s *clientService) List(ctx context.Context) []domain.Client {
	return s.session.State().Clients
}

// Get returns one client.
func (s *clientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := s.session.Client(id)
	if !ok {
		return nil, domain.NotFound("client.get", "client", id)
	}
	return &c, nil
}

// Detail returns the client, its timeline and the services billed to it.
func (s *clientService) Detail(ctx context.Context, id string) (*ClientDetail, error) {
	st := s.session.State()
	for _, c := range st.Clients {
		if c.ID == id {
			return &ClientDetail{
				Client:   c,
				Timeline: domain.Timeline(c),
				Services: domain.ServicesForClient(st.Services, id),
			}, nil
		}
	}
	return nil, domain.NotFound("client.detail", "client", id)
}

// Sheet renders the plain-text client sheet.
func (s *clientService) Sheet(ctx context.Context, id string) (string, error) {
	c, ok := s.session.Client(id)
	if !ok {
		return "", domain.NotFound("client.sheet", "client", id)
	}
	return domain.Sheet(c), nil
}

// =============================================================================
// Create
// =============================================================================

// Create creates a new client.
func (s *clientService) Create(ctx context.Context, params domain.ClientInput) (*domain.Client, error) {
	now := s.now()
	c := domain.NewClient(now)
	params.Apply(&c)

	if params.Status != "" && params.Status != c.Status {
		next, err := domain.SetStatus(c, params.Status, now)
		if err != nil {
			return nil, err
		}
		c = next
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.session.SaveClient(ctx, c); err != nil {
		return nil, observeStoreError(err)
	}

	metrics.ClientCreated()
	s.logger.Info("client created",
		"client_id", c.ID,
		"name", c.Name,
		"status", c.Status,
	)

	s.requestEnrichment(ctx, &c)
	return &c, nil
}

// =============================================================================
// Update
// =============================================================================

// Update replaces the editable fields of a client.
func (s *clientService) Update(ctx context.Context, id string, params domain.ClientInput) (*domain.Client, error) {
	var moved, statusChanged bool

	c, err := s.session.UpdateClient(ctx, id, func(c *domain.Client) error {
		moved = params.AddressChanged(c)
		params.Apply(c)
		if moved {
			// Derived from the old address.
			c.UTMZone, c.UTMEasting, c.UTMNorthing = "", "", ""
		}

		statusChanged = params.Status != "" && params.Status != c.Status
		if statusChanged {
			next, err := domain.SetStatus(*c, params.Status, s.now())
			if err != nil {
				return err
			}
			*c = next
		}
		return c.Validate()
	})
	if err != nil {
		return nil, observeStoreError(err)
	}

	if statusChanged {
		metrics.StatusChanged(c.Status.String())
	}
	s.logger.Info("client updated",
		"client_id", c.ID,
		"status_changed", statusChanged,
		"address_changed", moved,
	)

	s.requestEnrichment(ctx, &c)
	return &c, nil
}

// SetStatus moves a client to a project stage.
func (s *clientService) SetStatus(ctx context.Context, id string, status domain.Stage) (*domain.Client, error) {
	var from domain.Stage

	c, err := s.session.UpdateClient(ctx, id, func(c *domain.Client) error {
		from = c.Status
		next, err := domain.SetStatus(*c, status, s.now())
		if err != nil {
			return err
		}
		*c = next
		return nil
	})
	if err != nil {
		return nil, observeStoreError(err)
	}

	metrics.StatusChanged(c.Status.String())
	s.logger.Info("client status changed",
		"client_id", id,
		"from", from,
		"to", c.Status,
	)
	return &c, nil
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes a client.
func (s *clientService) Delete(ctx context.Context, id string) error {
	if err := s.session.DeleteClient(ctx, id); err != nil {
		return observeStoreError(err)
	}
	s.logger.Info("client deleted", "client_id", id)
	return nil
}

// =============================================================================
// Enrichment
// =============================================================================

// requestEnrichment queues a location lookup for clients that have an
// address but no coordinates yet. Failures are logged and never surface.
func (s *clientService) requestEnrichment(ctx context.Context, c *domain.Client) {
	if s.queue == nil || !c.HasAddress() || c.HasUTM() {
		return
	}
	job, err := worker.EnqueueEnrichLocation(ctx, s.queue, c.ID)
	if err != nil {
		s.logger.Warn("failed to queue location enrichment", "client_id", c.ID, "error", err)
		return
	}
	s.logger.Debug("location enrichment queued", "client_id", c.ID, "job_id", job.ID)
}

// observeStoreError counts storage-full failures and passes err through.
func observeStoreError(err error) error {
	if domain.ErrorCode(err) == domain.ESTORAGEFULL {
		metrics.StorageFull()
	}
	return err
}
