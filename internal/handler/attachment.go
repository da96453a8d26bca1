package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/service"
)

const (
	// maxUploadBody bounds a whole multipart batch. Individual files are
	// still checked against domain.MaxAttachmentSize.
	maxUploadBody = 10 * domain.MaxAttachmentSize

	// maxUploadMemory is how much of a batch is buffered before parts spill
	// to temporary files.
	maxUploadMemory = 32 << 20

	// uploadField is the multipart field holding the files.
	uploadField = "files"
)

// AttachmentHandler handles attachment upload, download and removal.
type AttachmentHandler struct {
	attachments service.AttachmentService
	logger      *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachments service.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
		logger:      logger,
	}
}

// RegisterRoutes registers the attachment routes on mux.
func (h *AttachmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/clients/{id}/attachments/{kind}", h.Upload)
	mux.HandleFunc("GET /api/clients/{id}/attachments/{kind}/{attachmentID}", h.Download)
	mux.HandleFunc("DELETE /api/clients/{id}/attachments/{kind}/{attachmentID}", h.Delete)
}

// =============================================================================
// POST /api/clients/{id}/attachments/{kind}
// =============================================================================

// Upload attaches every file in the "files" field. Files that fail are
// listed in the response next to the ones that were added.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		ErrorResponse(w, r, h.logger, uploadError(err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	files := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileUpload(fh))
	}

	result, err := h.attachments.Add(r.Context(), r.PathValue("id"), domain.AttachmentKind(r.PathValue("kind")), files)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if len(result.Added) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func fileUpload(fh *multipart.FileHeader) service.FileUpload {
	return service.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.TooLarge("attachment.upload", "The upload is too large; send fewer files at a time")
	}
	return domain.Wrap(err, domain.EINVALID, "attachment.upload", "The upload must be a multipart form with a \"files\" field")
}

// =============================================================================
// GET /api/clients/{id}/attachments/{kind}/{attachmentID}
// =============================================================================

// Download serves the stored bytes of one attachment. Images and PDFs are
// shown inline unless ?download=1 is given.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	content, err := h.attachments.Open(r.Context(), r.PathValue("id"), domain.AttachmentKind(r.PathValue("kind")), r.PathValue("attachmentID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inline := content.Inline && r.URL.Query().Get("download") == ""
	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Content-Disposition", contentDisposition(inline, content.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

// =============================================================================
// DELETE /api/clients/{id}/attachments/{kind}/{attachmentID}
// =============================================================================

// Delete removes one attachment.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.attachments.Remove(r.Context(), r.PathValue("id"), domain.AttachmentKind(r.PathValue("kind")), r.PathValue("attachmentID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
