// Package service contains the business logic layer.
//
// This file implements the attachment codec: uploaded files are embedded in
// client records as data URLs, with images downscaled and recompressed.
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/storage"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// =============================================================================
// Types
// =============================================================================

// FileUpload is one file as received from the client.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileError reports why one file of a batch could not be encoded.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Interface Definition
// =============================================================================

// AttachmentCodec turns uploads into embedded attachments and back.
type AttachmentCodec interface {
	// Encode reads one file. Images are fit into AttachmentMaxDimension on
	// both sides (never upscaled) and re-encoded as JPEG; an image in a format
	// the codec cannot decode is an error. Anything else is embedded byte for
	// byte.
	Encode(ctx context.Context, file FileUpload, now time.Time) (domain.Attachment, error)

	// EncodeBatch encodes every file. A failing file is reported in the
	// second return value and never stops the rest of the batch.
	EncodeBatch(ctx context.Context, files []FileUpload, now time.Time) ([]domain.Attachment, []*FileError)

	// Decode unwraps an attachment's data URL into its bytes and MIME type.
	Decode(a domain.Attachment) ([]byte, string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type imagingCodec struct {
	maxDimension int
	quality      int
}

// NewAttachmentCodec creates a codec backed by the imaging library.
func NewAttachmentCodec() AttachmentCodec {
	return &imagingCodec{
		maxDimension: domain.AttachmentMaxDimension,
		quality:      domain.AttachmentJPEGQuality,
	}
}

// Encode implements AttachmentCodec.
func (c *imagingCodec) Encode(ctx context.Context, file FileUpload, now time.Time) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}

	raw, err := readUpload(file)
	if err != nil {
		return domain.Attachment{}, err
	}

	contentType := storage.DetectContentType(file.ContentType, file.Name, bytes.NewReader(raw))

	payloadType, payload := contentType, raw
	if storage.IsImage(contentType) {
		if !storage.IsResizableImage(contentType) {
			return domain.Attachment{}, domain.Errorf(domain.EINVALID, "attachment.encode",
				"%s images are not supported; upload JPEG, PNG or WebP", storage.BaseType(contentType))
		}
		payload, err = c.compress(raw)
		if err != nil {
			return domain.Attachment{}, err
		}
		payloadType = "image/jpeg"
	}

	size := file.Size
	if size <= 0 {
		size = int64(len(raw))
	}

	return domain.Attachment{
		ID:         domain.NewID(domain.AttachmentIDPrefix, now),
		Name:       file.Name,
		MIMEType:   contentType,
		Size:       size,
		UploadedAt: now,
		Data:       DataURL(payloadType, payload),
	}, nil
}

// EncodeBatch implements AttachmentCodec.
func (c *imagingCodec) EncodeBatch(ctx context.Context, files []FileUpload, now time.Time) ([]domain.Attachment, []*FileError) {
	encoded := make([]domain.Attachment, 0, len(files))
	var failed []*FileError

	for _, f := range files {
		a, err := c.Encode(ctx, f, now)
		if err != nil {
			failed = append(failed, &FileError{Name: f.Name, Err: err})
			continue
		}
		encoded = append(encoded, a)
	}
	return encoded, failed
}

// Decode implements AttachmentCodec.
func (c *imagingCodec) Decode(a domain.Attachment) ([]byte, string, error) {
	data, mimeType, err := ParseDataURL(a.Data)
	if err != nil {
		return nil, "", domain.Wrap(err, domain.EINVALID, "attachment.decode", "attachment data is corrupt")
	}
	return data, mimeType, nil
}

// compress decodes an image, fits it within maxDimension and re-encodes it
// as JPEG. EXIF orientation is applied so phone photos keep their rotation.
func (c *imagingCodec) compress(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, "attachment.encode", "image could not be decoded")
	}

	// Fit returns a copy unchanged when the image is already small enough.
	fitted := imaging.Fit(img, c.maxDimension, c.maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func readUpload(file FileUpload) ([]byte, error) {
	if file.Open == nil {
		return nil, domain.Invalid("attachment.encode", "file has no content")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, domain.MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := domain.ValidateAttachmentSize(file.Name, int64(len(raw))); err != nil {
		return nil, err
	}
	return raw, nil
}

// =============================================================================
// Data URLs
// =============================================================================

// DataURL builds a base64 "data:" URL.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a "data:" URL into its payload and MIME type. Both
// base64 and percent-encoded payloads are accepted.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URL has no payload separator")
	}

	isBase64 := false
	mimeType := header
	if h, found := strings.CutSuffix(header, ";base64"); found {
		isBase64 = true
		mimeType = h
	}
	if mimeType == "" {
		mimeType = "text/plain;charset=US-ASCII"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 payload: %w", err)
		}
		return data, mimeType, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode payload: %w", err)
	}
	return []byte(text), mimeType, nil
}
