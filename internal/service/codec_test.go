package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngUpload(t *testing.T, name string, w, h int) FileUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytesUpload(name, "image/png", buf.Bytes())
}

func bytesUpload(name, contentType string, data []byte) FileUpload {
	return FileUpload{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func decodedSize(t *testing.T, codec AttachmentCodec, a domain.Attachment) (int, int) {
	t.Helper()
	data, mimeType, err := codec.Decode(a)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestCodec_Encode_DownscalesLargeImages(t *testing.T) {
	codec := NewAttachmentCodec()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 1600, 1200, 800, 600},
		{"portrait", 900, 1800, 400, 800},
		{"small stays unresized", 300, 200, 300, 200},
		{"exactly at limit", 800, 800, 800, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := pngUpload(t, "photo.png", tt.w, tt.h)

			a, err := codec.Encode(context.Background(), upload, now)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(a.ID, "att_"))
			assert.Equal(t, "photo.png", a.Name)
			assert.Equal(t, "image/png", a.MIMEType, "original type is kept")
			assert.Equal(t, upload.Size, a.Size, "original size is kept")
			assert.Equal(t, now, a.UploadedAt)
			assert.True(t, strings.HasPrefix(a.Data, "data:image/jpeg;base64,"))

			w, h := decodedSize(t, codec, a)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

// solidWebP is a 1000x500 single-colour lossless WebP.
var solidWebP = []byte{
	0x52, 0x49, 0x46, 0x46, 0x1a, 0x00, 0x00, 0x00, 0x57, 0x45, 0x42, 0x50,
	0x56, 0x50, 0x38, 0x4c, 0x0d, 0x00, 0x00, 0x00, 0x2f, 0xe7, 0xc3, 0x7c,
	0x00, 0x28, 0x60, 0x81, 0x0a, 0xd2, 0xff, 0x02, 0x00, 0x00,
}

func TestCodec_Encode_DownscalesWebP(t *testing.T) {
	codec := NewAttachmentCodec()

	a, err := codec.Encode(context.Background(), bytesUpload("roof.webp", "image/webp", solidWebP), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "image/webp", a.MIMEType)
	assert.True(t, strings.HasPrefix(a.Data, "data:image/jpeg;base64,"))

	w, h := decodedSize(t, codec, a)
	assert.Equal(t, 800, w)
	assert.Equal(t, 400, h)
}

func TestCodec_Encode_RejectsUndecodableImages(t *testing.T) {
	codec := NewAttachmentCodec()

	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"corrupt webp", "image/webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 garbage")},
		{"heic", "image/heic", []byte("\x00\x00\x00\x18ftypheic")},
		{"svg", "image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Encode(context.Background(), bytesUpload("file", tt.contentType, tt.data), time.Now())
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func TestCodec_Encode_NonImageIsEmbeddedVerbatim(t *testing.T) {
	codec := NewAttachmentCodec()
	content := []byte("%PDF-1.4 fake pdf body")

	a, err := codec.Encode(context.Background(), bytesUpload("bill.pdf", "application/pdf", content), time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.Data, "data:application/pdf;base64,"))

	data, mimeType, err := codec.Decode(a)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, content, data)
}

func TestCodec_Encode_CorruptImage(t *testing.T) {
	codec := NewAttachmentCodec()

	_, err := codec.Encode(context.Background(), bytesUpload("broken.jpg", "image/jpeg", []byte("not a jpeg")), time.Now())
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCodec_EncodeBatch_ContinuesPastFailures(t *testing.T) {
	codec := NewAttachmentCodec()
	readErr := errors.New("connection dropped")

	files := []FileUpload{
		pngUpload(t, "a.png", 10, 10),
		bytesUpload("broken.png", "image/png", []byte("garbage")),
		{Name: "unreadable.txt", Open: func() (io.ReadCloser, error) { return nil, readErr }},
		bytesUpload("notes.txt", "text/plain", []byte("hello")),
	}

	encoded, failed := codec.EncodeBatch(context.Background(), files, time.Now())

	require.Len(t, encoded, 2)
	assert.Equal(t, "a.png", encoded[0].Name)
	assert.Equal(t, "notes.txt", encoded[1].Name)

	require.Len(t, failed, 2)
	assert.Equal(t, "broken.png", failed[0].Name)
	assert.Equal(t, "unreadable.txt", failed[1].Name)
	assert.ErrorIs(t, failed[1], readErr)
}

func TestCodec_Encode_RejectsOversizedContent(t *testing.T) {
	codec := NewAttachmentCodec()
	big := bytes.Repeat([]byte{'x'}, domain.MaxAttachmentSize+1)

	_, err := codec.Encode(context.Background(), bytesUpload("huge.bin", "application/octet-stream", big), time.Now())
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(err))
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantData string
		wantMIME string
		wantErr  bool
	}{
		{"base64", DataURL("text/plain", []byte("olá")), "olá", "text/plain", false},
		{"percent encoded", "data:text/plain,hello%20world", "hello world", "text/plain", false},
		{"default type", "data:,x", "x", "text/plain;charset=US-ASCII", false},
		{"not a data url", "https://example.com/a.png", "", "", true},
		{"missing comma", "data:image/png;base64", "", "", true},
		{"bad base64", "data:image/png;base64,@@@", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mimeType, err := ParseDataURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(data))
			assert.Equal(t, tt.wantMIME, mimeType)
		})
	}
}
