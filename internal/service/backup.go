// Package service contains the business logic layer.
//
// This file implements backup and restore: JSON export and import of every
// collection, plus snapshots kept in blob storage.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/metrics"
	"github.com/DukeRupert/solartek/internal/storage"
)

// MaxBackupSize bounds an imported backup file. Attachments are embedded in
// client records, so backups are large.
const MaxBackupSize = 512 * 1024 * 1024

// =============================================================================
// Interface Definition
// =============================================================================

// BackupService defines the interface for backup and restore.
type BackupService interface {
	// Export serializes every collection as indented JSON and returns it
	// with its download filename.
	Export(ctx context.Context) (*BackupFile, error)

	// Import restores a backup document. The whole document is parsed and
	// checked before anything is written; each collection present in it
	// replaces the stored one, and absent collections are left alone. The
	// loaded state is reloaded afterwards.
	// Returns domain.EINVALID for malformed documents.
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)

	// Snapshot writes an export to blob storage and returns its metadata.
	Snapshot(ctx context.Context) (*storage.ObjectInfo, error)

	// ListSnapshots returns the stored snapshots, oldest first.
	ListSnapshots(ctx context.Context) ([]storage.ObjectInfo, error)

	// OpenSnapshot streams one stored snapshot. The caller must close it.
	// Returns domain.ENOTFOUND if there is no such snapshot.
	OpenSnapshot(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)

	// RestoreSnapshot imports a stored snapshot.
	// Returns domain.ENOTFOUND if there is no such snapshot.
	RestoreSnapshot(ctx context.Context, key string) (*ImportResult, error)
}

// BackupFile is a serialized export.
type BackupFile struct {
	Filename string
	Data     []byte
}

// ImportResult reports how many records each restored collection now holds.
// Collections absent from the document are nil.
type ImportResult struct {
	Clients  *int `json:"clients,omitempty"`
	Services *int `json:"services,omitempty"`
	Expenses *int `json:"expenses,omitempty"`
}

// =============================================================================
// Implementation
// =============================================================================

type backupService struct {
	session *app.Session
	blobs   storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewBackupService creates a new BackupService.
//
// Parameters:
// - session: Loaded record state backed by the record store
// - blobs: Blob storage for snapshots (nil disables snapshots)
// - logger: Structured logger for operation logging
func NewBackupService(session *app.Session, blobs storage.Storage, logger *slog.Logger) BackupService {
	return &backupService{
		session: session,
		blobs:   blobs,
		logger:  logger,
		now:     time.Now,
	}
}

// Export serializes every collection.
func (s *backupService) Export(ctx context.Context) (*BackupFile, error) {
	file, err := s.export()
	metrics.Backup("export", err)
	return file, err
}

func (s *backupService) export() (*BackupFile, error) {
	const op = "backup.export"

	now := s.now()
	st := s.session.State()
	snap := domain.NewSnapshot(st.Clients, st.Services, st.Expenses, now)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, domain.Internal(err, op, "failed to serialize backup")
	}

	s.logger.Info("backup exported",
		"clients", len(st.Clients),
		"services", len(st.Services),
		"expenses", len(st.Expenses),
		"bytes", len(data),
	)
	return &BackupFile{Filename: domain.BackupFilename(now), Data: data}, nil
}

// Import restores a backup document.
func (s *backupService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	result, err := s.importFrom(ctx, r)
	metrics.Backup("import", err)
	return result, err
}

func (s *backupService) importFrom(ctx context.Context, r io.Reader) (*ImportResult, error) {
	snap, err := ParseSnapshot(r)
	if err != nil {
		return nil, err
	}

	if err := s.session.Restore(ctx, snap); err != nil {
		return nil, observeStoreError(err)
	}

	result := &ImportResult{}
	if snap.Clients != nil {
		result.Clients = count(len(*snap.Clients))
	}
	if snap.Services != nil {
		result.Services = count(len(*snap.Services))
	}
	if snap.Expenses != nil {
		result.Expenses = count(len(*snap.Expenses))
	}

	s.logger.Info("backup imported",
		"clients", result.Clients != nil,
		"services", result.Services != nil,
		"expenses", result.Expenses != nil,
	)
	return result, nil
}

func count(n int) *int { return &n }

// ParseSnapshot decodes and checks a backup document without side effects.
func ParseSnapshot(r io.Reader) (domain.Snapshot, error) {
	const op = "backup.import"

	data, err := io.ReadAll(io.LimitReader(r, MaxBackupSize+1))
	if err != nil {
		return domain.Snapshot{}, domain.Wrap(err, domain.EINVALID, op, "backup file could not be read")
	}
	if len(data) > MaxBackupSize {
		return domain.Snapshot{}, domain.TooLarge(op, fmt.Sprintf("backup file must be smaller than %dMB", MaxBackupSize/(1024*1024)))
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(bytes.TrimSpace(data), &snap); err != nil {
		return domain.Snapshot{}, domain.Wrap(err, domain.EINVALID, op, "backup file is malformed")
	}

	if snap.Clients != nil {
		for i := range *snap.Clients {
			c := &(*snap.Clients)[i]
			if c.ID == "" {
				return domain.Snapshot{}, domain.Errorf(domain.EINVALID, op, "client #%d has no id", i+1)
			}
			c.Normalize()
		}
	}
	if snap.Services != nil {
		for i, v := range *snap.Services {
			if v.ID == "" {
				return domain.Snapshot{}, domain.Errorf(domain.EINVALID, op, "service #%d has no id", i+1)
			}
		}
	}
	if snap.Expenses != nil {
		for i, e := range *snap.Expenses {
			if e.ID == "" {
				return domain.Snapshot{}, domain.Errorf(domain.EINVALID, op, "expense #%d has no id", i+1)
			}
		}
	}
	return snap, nil
}

// =============================================================================
// Snapshots
// =============================================================================

// Snapshot writes an export to blob storage.
func (s *backupService) Snapshot(ctx context.Context) (*storage.ObjectInfo, error) {
	info, err := s.snapshot(ctx)
	metrics.Backup("snapshot", err)
	return info, err
}

func (s *backupService) snapshot(ctx context.Context) (*storage.ObjectInfo, error) {
	const op = "backup.snapshot"

	if s.blobs == nil {
		return nil, domain.Errorf(domain.EUNAVAILABLE, op, "snapshot storage is not configured")
	}

	file, err := s.export()
	if err != nil {
		return nil, err
	}

	key := storage.BackupKey(s.now())
	err = s.blobs.Put(ctx, key, bytes.NewReader(file.Data), storage.PutOptions{
		ContentType: "application/json",
		Overwrite:   true,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store snapshot")
	}

	s.logger.Info("backup snapshot stored", "key", key, "bytes", len(file.Data))
	return &storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(file.Data)),
		ContentType:  "application/json",
		LastModified: s.now(),
	}, nil
}

// ListSnapshots returns the stored snapshots.
func (s *backupService) ListSnapshots(ctx context.Context) ([]storage.ObjectInfo, error) {
	const op = "backup.list"

	if s.blobs == nil {
		return []storage.ObjectInfo{}, nil
	}
	objects, err := s.blobs.List(ctx, storage.BackupPrefix)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list snapshots")
	}

	out := make([]storage.ObjectInfo, 0, len(objects))
	for _, o := range objects {
		if storage.IsBackupKey(o.Key) {
			out = append(out, o)
		}
	}
	return out, nil
}

// OpenSnapshot streams one stored snapshot.
func (s *backupService) OpenSnapshot(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	const op = "backup.open"

	if s.blobs == nil || !storage.IsBackupKey(key) {
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "snapshot", key)
	}

	rc, info, err := s.blobs.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) || storage.IsInvalidKey(err) {
			return nil, storage.ObjectInfo{}, domain.NotFound(op, "snapshot", key)
		}
		return nil, storage.ObjectInfo{}, domain.Internal(err, op, "failed to read snapshot")
	}
	return rc, info, nil
}

// RestoreSnapshot imports a stored snapshot.
func (s *backupService) RestoreSnapshot(ctx context.Context, key string) (*ImportResult, error) {
	rc, _, err := s.OpenSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	s.logger.Info("restoring backup snapshot", "key", key)
	return s.Import(ctx, rc)
}
