// Package service contains the business logic layer.
//
// This file implements attachment management: uploads are encoded into the
// owning client record and served back from it.
package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/metrics"
	"github.com/DukeRupert/solartek/internal/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// AttachmentService defines the interface for client attachments.
type AttachmentService interface {
	// Add encodes the files and appends the ones that succeed to the
	// category's list in one save. Files over the size limit are rejected
	// before any decoding; every rejected or failed file is reported in the
	// result and never blocks the others.
	// Returns domain.ENOTFOUND if the client does not exist.
	// Returns domain.EINVALID if kind is not an attachment category.
	// Returns domain.ESTORAGEFULL if the grown record does not fit.
	Add(ctx context.Context, clientID string, kind domain.AttachmentKind, files []FileUpload) (*AddAttachmentsResult, error)

	// Remove deletes one attachment from a client.
	// Returns domain.ENOTFOUND if the client or attachment does not exist.
	Remove(ctx context.Context, clientID string, kind domain.AttachmentKind, attachmentID string) error

	// Open returns the decoded bytes of one attachment for download.
	// Returns domain.ENOTFOUND if the client or attachment does not exist.
	Open(ctx context.Context, clientID string, kind domain.AttachmentKind, attachmentID string) (*AttachmentContent, error)
}

// AddAttachmentsResult reports the outcome of an upload batch.
type AddAttachmentsResult struct {
	Added  []domain.Attachment `json:"added"`
	Failed []FailedUpload      `json:"failed"`
}

// FailedUpload names a file that was not attached and why.
type FailedUpload struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AttachmentContent is a decoded attachment ready to be served.
type AttachmentContent struct {
	Name        string
	ContentType string
	Data        []byte
	Inline      bool
}

// =============================================================================
// Implementation
// =============================================================================

type attachmentService struct {
	session *app.Session
	codec   AttachmentCodec
	logger  *slog.Logger
	now     func() time.Time
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(session *app.Session, codec AttachmentCodec, logger *slog.Logger) AttachmentService {
	return &attachmentService{
		session: session,
		codec:   codec,
		logger:  logger,
		now:     time.Now,
	}
}

// Add encodes and attaches a batch of files.
func (s *attachmentService) Add(ctx context.Context, clientID string, kind domain.AttachmentKind, files []FileUpload) (*AddAttachmentsResult, error) {
	const op = "attachment.add"

	if !kind.IsValid() {
		return nil, domain.Invalid(op, "attachment category is not recognized")
	}
	if len(files) == 0 {
		return nil, domain.Invalid(op, "no files were uploaded")
	}
	if _, ok := s.session.Client(clientID); !ok {
		return nil, domain.NotFound(op, "client", clientID)
	}

	result := &AddAttachmentsResult{
		Added:  []domain.Attachment{},
		Failed: []FailedUpload{},
	}

	accepted := make([]FileUpload, 0, len(files))
	for _, f := range files {
		if err := domain.ValidateAttachmentSize(f.Name, f.Size); err != nil {
			result.Failed = append(result.Failed, FailedUpload{Name: f.Name, Reason: domain.ErrorMessage(err)})
			metrics.AttachmentEncoded(string(kind), "rejected")
			continue
		}
		accepted = append(accepted, f)
	}

	encoded, failed := s.codec.EncodeBatch(ctx, accepted, s.now())
	for _, fe := range failed {
		s.logger.Warn("attachment could not be encoded", "client_id", clientID, "file", fe.Name, "error", fe.Err)
		result.Failed = append(result.Failed, FailedUpload{Name: fe.Name, Reason: failureReason(fe.Err)})
		metrics.AttachmentEncoded(string(kind), "failed")
	}
	if len(encoded) == 0 {
		return result, nil
	}

	_, err := s.session.UpdateClient(ctx, clientID, func(c *domain.Client) error {
		list := slices.Clone(c.Attachments(kind))
		c.SetAttachments(kind, append(list, encoded...))
		return nil
	})
	if err != nil {
		return nil, observeStoreError(err)
	}

	for _, a := range encoded {
		status := "raw"
		if storage.IsImage(a.MIMEType) {
			status = "resized"
		}
		metrics.AttachmentEncoded(string(kind), status)
	}
	result.Added = encoded

	s.logger.Info("attachments added",
		"client_id", clientID,
		"kind", kind,
		"added", len(result.Added),
		"failed", len(result.Failed),
	)
	return result, nil
}

// Remove deletes one attachment.
func (s *attachmentService) Remove(ctx context.Context, clientID string, kind domain.AttachmentKind, attachmentID string) error {
	const op = "attachment.remove"

	_, err := s.session.UpdateClient(ctx, clientID, func(c *domain.Client) error {
		if _, ok := c.FindAttachment(kind, attachmentID); !ok {
			return domain.NotFound(op, "attachment", attachmentID)
		}
		kept := make([]domain.Attachment, 0, len(c.Attachments(kind)))
		for _, a := range c.Attachments(kind) {
			if a.ID != attachmentID {
				kept = append(kept, a)
			}
		}
		c.SetAttachments(kind, kept)
		return nil
	})
	if err != nil {
		return observeStoreError(err)
	}

	s.logger.Info("attachment removed", "client_id", clientID, "kind", kind, "attachment_id", attachmentID)
	return nil
}

// Open decodes one attachment for download.
func (s *attachmentService) Open(ctx context.Context, clientID string, kind domain.AttachmentKind, attachmentID string) (*AttachmentContent, error) {
	const op = "attachment.open"

	c, ok := s.session.Client(clientID)
	if !ok {
		return nil, domain.NotFound(op, "client", clientID)
	}
	a, ok := c.FindAttachment(kind, attachmentID)
	if !ok {
		return nil, domain.NotFound(op, "attachment", attachmentID)
	}

	data, contentType, err := s.codec.Decode(a)
	if err != nil {
		return nil, err
	}

	return &AttachmentContent{
		Name:        a.Name,
		ContentType: contentType,
		Data:        data,
		Inline:      storage.IsInline(contentType),
	}, nil
}

// failureReason returns a message safe to show for a per-file failure.
func failureReason(err error) string {
	if code := domain.ErrorCode(err); code != domain.EINTERNAL {
		return domain.ErrorMessage(err)
	}
	return "file could not be read"
}
