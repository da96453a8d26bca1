package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/service"
	"github.com/DukeRupert/solartek/internal/storage"
)

// backupField is the multipart field a restore file is sent in.
const backupField = "file"

// BackupHandler handles export, import and stored snapshots.
type BackupHandler struct {
	backups service.BackupService
	logger  *slog.Logger
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(backups service.BackupService, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		backups: backups,
		logger:  logger,
	}
}

// RegisterRoutes registers the backup routes on mux.
func (h *BackupHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/backup", h.Export)
	mux.HandleFunc("POST /api/restore", h.Import)
	mux.HandleFunc("POST /api/restore/{key...}", h.RestoreSnapshot)
	mux.HandleFunc("POST /api/backups", h.CreateSnapshot)
	mux.HandleFunc("GET /api/backups", h.ListSnapshots)
	mux.HandleFunc("GET /api/backups/{key...}", h.DownloadSnapshot)
}

// =============================================================================
// GET /api/backup
// =============================================================================

// Export downloads every collection as one JSON file.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	file, err := h.backups.Export(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", contentDisposition(false, file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// =============================================================================
// POST /api/restore
// =============================================================================

// Import restores a backup sent either as the raw request body or as the
// "file" field of a multipart form.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxBackupSize+maxUploadMemory)

	body, closeBody, err := backupBody(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer closeBody()

	result, err := h.backups.Import(r.Context(), body)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func backupBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, uploadError(err)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	f, _, err := r.FormFile(backupField)
	if err != nil {
		cleanup()
		return nil, nil, domain.Invalid("backup.import", "The backup file must be sent in the \"file\" field")
	}
	return f, func() {
		_ = f.Close()
		cleanup()
	}, nil
}

// =============================================================================
// Snapshots
// =============================================================================

// CreateSnapshot writes the current data to blob storage.
func (h *BackupHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	info, err := h.backups.Snapshot(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListSnapshots returns the stored snapshots.
func (h *BackupHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.backups.ListSnapshots(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if infos == nil {
		infos = []storage.ObjectInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// DownloadSnapshot streams one stored snapshot.
func (h *BackupHandler) DownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	key := snapshotKey(r.PathValue("key"))
	body, info, err := h.backups.OpenSnapshot(r.Context(), key)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", contentDisposition(false, strings.TrimPrefix(info.Key, storage.BackupPrefix)))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("snapshot download interrupted", "key", key, "error", err)
	}
}

// RestoreSnapshot imports a stored snapshot.
func (h *BackupHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.backups.RestoreSnapshot(r.Context(), snapshotKey(r.PathValue("key")))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// snapshotKey accepts either a full storage key or just the file name
// under the backup prefix.
func snapshotKey(raw string) string {
	if strings.HasPrefix(raw, storage.BackupPrefix) {
		return raw
	}
	return storage.BackupPrefix + raw
}
