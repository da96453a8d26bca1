package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttachmentService(t *testing.T) (*attachmentService, *clientService) {
	t.Helper()
	session, _ := newTestSession(t, []domain.Client{seedClient("c1", "Ana")}, nil, nil)
	svc := NewAttachmentService(session, NewAttachmentCodec(), testLogger()).(*attachmentService)
	svc.now = fixedClock
	clients := NewClientService(session, nil, testLogger()).(*clientService)
	return svc, clients
}

func TestAttachmentService_Add(t *testing.T) {
	svc, clients := newTestAttachmentService(t)
	ctx := context.Background()

	oversized := bytesUpload("huge.pdf", "application/pdf", []byte("%PDF"))
	oversized.Size = domain.MaxAttachmentSize + 1

	result, err := svc.Add(ctx, "c1", domain.AttachmentKindEnergyBill, []FileUpload{
		pngUpload(t, "bill.png", 1600, 1200),
		oversized,
		bytesUpload("broken.jpg", "image/jpeg", []byte("nope")),
		bytesUpload("bill.pdf", "application/pdf", []byte("%PDF-1.4")),
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 2)
	assert.Equal(t, "bill.png", result.Added[0].Name)
	assert.Equal(t, "bill.pdf", result.Added[1].Name)

	require.Len(t, result.Failed, 2)
	assert.Equal(t, "huge.pdf", result.Failed[0].Name)
	assert.Contains(t, result.Failed[0].Reason, "smaller than 15MB")
	assert.Equal(t, "broken.jpg", result.Failed[1].Name)

	c, err := clients.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, c.EnergyBillAttachments, 2)
	assert.Empty(t, c.IdentityAttachments)
}

func TestAttachmentService_Add_Appends(t *testing.T) {
	svc, clients := newTestAttachmentService(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := svc.Add(ctx, "c1", domain.AttachmentKindOther, []FileUpload{
			bytesUpload(name, "text/plain", []byte(name)),
		})
		require.NoError(t, err)
	}

	c, err := clients.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c.OtherAttachments, 2)
	assert.Equal(t, "a.txt", c.OtherAttachments[0].Name)
	assert.Equal(t, "b.txt", c.OtherAttachments[1].Name)
}

func TestAttachmentService_Add_Errors(t *testing.T) {
	svc, _ := newTestAttachmentService(t)
	ctx := context.Background()
	file := bytesUpload("a.txt", "text/plain", []byte("a"))

	_, err := svc.Add(ctx, "c1", "selfies", []FileUpload{file})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.Add(ctx, "c1", domain.AttachmentKindOther, nil)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.Add(ctx, "missing", domain.AttachmentKindOther, []FileUpload{file})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestAttachmentService_OpenAndRemove(t *testing.T) {
	svc, clients := newTestAttachmentService(t)
	ctx := context.Background()
	pdf := []byte("%PDF-1.4 body")

	result, err := svc.Add(ctx, "c1", domain.AttachmentKindIdentity, []FileUpload{
		bytesUpload("rg.pdf", "application/pdf", pdf),
		bytesUpload("notes.csv", "text/csv", []byte("a,b")),
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 2)
	pdfID, csvID := result.Added[0].ID, result.Added[1].ID

	content, err := svc.Open(ctx, "c1", domain.AttachmentKindIdentity, pdfID)
	require.NoError(t, err)
	assert.Equal(t, "rg.pdf", content.Name)
	assert.Equal(t, "application/pdf", content.ContentType)
	assert.True(t, content.Inline)
	assert.True(t, bytes.Equal(pdf, content.Data))

	content, err = svc.Open(ctx, "c1", domain.AttachmentKindIdentity, csvID)
	require.NoError(t, err)
	assert.False(t, content.Inline, "non-previewable files are downloads")

	_, err = svc.Open(ctx, "c1", domain.AttachmentKindOther, pdfID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err), "lookups are scoped to the category")

	require.NoError(t, svc.Remove(ctx, "c1", domain.AttachmentKindIdentity, pdfID))
	c, err := clients.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c.IdentityAttachments, 1)
	assert.Equal(t, csvID, c.IdentityAttachments[0].ID)

	err = svc.Remove(ctx, "c1", domain.AttachmentKindIdentity, pdfID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
