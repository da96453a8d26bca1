package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/repository"
	"github.com/DukeRupert/solartek/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClientService(t *testing.T, clients ...domain.Client) (*clientService, *repository.MemoryStore, *repository.MemoryJobQueue) {
	t.Helper()
	session, store := newTestSession(t, clients, nil, nil)
	queue := repository.NewMemoryJobQueue()
	svc := NewClientService(session, queue, testLogger()).(*clientService)
	svc.now = fixedClock
	return svc, store, queue
}

func TestClientService_Create(t *testing.T) {
	svc, store, queue := newTestClientService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.ClientInput{
		Name:       "  Maria Souza ",
		TaxID:      "12345678901",
		PostalCode: "80010000",
	})
	require.NoError(t, err)

	assert.Contains(t, c.ID, "cli_")
	assert.Equal(t, "Maria Souza", c.Name)
	assert.Equal(t, "123.456.789-01", c.TaxID)
	assert.Equal(t, "80010-000", c.PostalCode)
	assert.Equal(t, domain.Stages[0], c.Status)
	assert.Equal(t, "2024-03-15", c.StageDates[domain.Stages[0]])
	assert.Equal(t, domain.DocumentStatusPending, c.EnergyBillStatus)

	stored, err := store.Clients().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", stored.Name)

	jobs := queue.Jobs()
	require.Len(t, jobs, 1, "clients with an address get enriched")
	assert.Equal(t, worker.JobTypeEnrichLocation, jobs[0].JobType)
}

func TestClientService_Create_WithStatus(t *testing.T) {
	svc, _, queue := newTestClientService(t)

	c, err := svc.Create(context.Background(), domain.ClientInput{Name: "João", Status: domain.StageSiteVisit})
	require.NoError(t, err)

	assert.Equal(t, domain.StageSiteVisit, c.Status)
	assert.Equal(t, "2024-03-15", c.StageDates[domain.StageSiteVisit])
	assert.Equal(t, "2024-03-15", c.StageDates[domain.Stages[0]])
	assert.Empty(t, queue.Jobs(), "no address, no enrichment")
}

func TestClientService_Create_Invalid(t *testing.T) {
	svc, store, _ := newTestClientService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.ClientInput{Name: ""})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")

	_, err = svc.Create(ctx, domain.ClientInput{Name: "X", Status: "Not a stage"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	clients, err := store.Clients().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestClientService_Update(t *testing.T) {
	existing := seedClient("c1", "Ana")
	existing.Street = "Rua A"
	existing.City = "Curitiba"
	existing.UTMZone, existing.UTMEasting, existing.UTMNorthing = "22J", "673648", "7186491"
	svc, _, queue := newTestClientService(t, existing)
	ctx := context.Background()

	t.Run("status change records the stage date", func(t *testing.T) {
		c, err := svc.Update(ctx, "c1", domain.ClientInput{
			Name:   "Ana Paula",
			Street: "Rua A",
			City:   "Curitiba",
			Status: domain.StageInDesign,
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Paula", c.Name)
		assert.Equal(t, domain.StageInDesign, c.Status)
		assert.Equal(t, "2024-03-15", c.StageDates[domain.StageInDesign])
		assert.True(t, c.HasUTM(), "address unchanged keeps coordinates")
		assert.Empty(t, queue.Jobs())
	})

	t.Run("address change clears coordinates and queues enrichment", func(t *testing.T) {
		c, err := svc.Update(ctx, "c1", domain.ClientInput{
			Name:   "Ana Paula",
			Street: "Rua B",
			City:   "Curitiba",
		})
		require.NoError(t, err)
		assert.False(t, c.HasUTM())
		assert.Equal(t, domain.StageInDesign, c.Status, "blank status leaves the stage alone")
		assert.Len(t, queue.Jobs(), 1)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.Update(ctx, "nope", domain.ClientInput{Name: "X"})
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

func TestClientService_SetStatus_PreservesHistory(t *testing.T) {
	existing := seedClient("c1", "Ana")
	existing.StageDates[domain.StageCompleted] = "2024-01-10"
	svc, _, _ := newTestClientService(t, existing)

	c, err := svc.SetStatus(context.Background(), "c1", domain.StageSiteVisit)
	require.NoError(t, err)

	assert.Equal(t, domain.StageSiteVisit, c.Status)
	assert.Equal(t, "2024-03-15", c.StageDates[domain.StageSiteVisit])
	assert.Equal(t, "2024-01-10", c.StageDates[domain.StageCompleted], "later stages keep their dates")

	_, err = svc.SetStatus(context.Background(), "c1", "bogus")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestClientService_Detail(t *testing.T) {
	c1 := seedClient("c1", "Ana")
	c1.Status = domain.StageQuoteApproved
	session, _ := newTestSession(t,
		[]domain.Client{c1, seedClient("c2", "Bruno")},
		[]domain.Service{{ID: "s1", ClientID: "c1"}, {ID: "s2", ClientID: "c2"}},
		nil,
	)
	svc := NewClientService(session, nil, testLogger())

	d, err := svc.Detail(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.Client.Name)
	require.Len(t, d.Services, 1)
	assert.Equal(t, "s1", d.Services[0].ID)
	require.Len(t, d.Timeline, len(domain.Stages))
	assert.True(t, d.Timeline[3].Active)

	_, err = svc.Detail(context.Background(), "zzz")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestClientService_Delete_RollsBack(t *testing.T) {
	svc, store, _ := newTestClientService(t, seedClient("c1", "Ana"), seedClient("c2", "Bruno"))
	ctx := context.Background()

	store.SetFault(func(op, table, id string) error {
		if op == "delete" {
			return errors.New("disk error")
		}
		return nil
	})

	err := svc.Delete(ctx, "c1")
	require.Error(t, err)

	clients := svc.List(ctx)
	require.Len(t, clients, 2)
	assert.Equal(t, "c1", clients[0].ID)

	store.SetFault(nil)
	require.NoError(t, svc.Delete(ctx, "c1"))
	assert.Len(t, svc.List(ctx), 1)
}

func TestClientService_Sheet(t *testing.T) {
	svc, _, _ := newTestClientService(t, seedClient("c1", "Ana"))

	sheet, err := svc.Sheet(context.Background(), "c1")
	require.NoError(t, err)
	assert.Contains(t, sheet, "Ana")

	_, err = svc.Sheet(context.Background(), "c9")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestClientService_StorageFull(t *testing.T) {
	session, store := newTestSession(t, nil, nil, nil)
	store.SetFault(func(op, table, id string) error {
		if op == "upsert" {
			return repository.ErrCapacity
		}
		return nil
	})
	svc := NewClientService(session, nil, testLogger())

	_, err := svc.Create(context.Background(), domain.ClientInput{Name: "Ana"})
	assert.Equal(t, domain.ESTORAGEFULL, domain.ErrorCode(err))
}
