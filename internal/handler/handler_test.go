package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/geo/mock"
	"github.com/DukeRupert/solartek/internal/repository"
	"github.com/DukeRupert/solartek/internal/service"
	"github.com/DukeRupert/solartek/internal/storage"
)

// testAPI is the whole API served over an in-memory store.
type testAPI struct {
	handler http.Handler
	store   *repository.MemoryStore
	queue   *repository.MemoryJobQueue
	geo     *mock.Provider
	session *app.Session
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := testLogger()

	store := repository.NewMemoryStore(0)
	queue := repository.NewMemoryJobQueue()
	provider := mock.New(logger)

	blobs, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, logger)
	require.NoError(t, err)

	session := app.NewSession(store, logger)
	require.NoError(t, session.Load(context.Background()))

	mux := NewRouter(Services{
		Clients:     service.NewClientService(session, queue, logger),
		Attachments: service.NewAttachmentService(session, service.NewAttachmentCodec(), logger),
		Finance:     service.NewFinanceService(session, logger),
		Backups:     service.NewBackupService(session, blobs, logger),
		Locations:   service.NewLocationService(session, provider, logger),
		Store:       store,
	}, logger)

	return &testAPI{
		handler: mux,
		store:   store,
		queue:   queue,
		geo:     provider,
		session: session,
	}
}

// do sends a request with an optional JSON body.
func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// createClient adds a client through the API and returns its id.
func (a *testAPI) createClient(t *testing.T, name string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/clients", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)
	return created.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) JSONError {
	t.Helper()
	var body JSONError
	decodeBody(t, rec, &body)
	return body
}
