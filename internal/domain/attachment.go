package domain

import "time"

// AttachmentKind names the document category an attachment belongs to.
type AttachmentKind string

const (
	AttachmentKindIdentity        AttachmentKind = "identity"
	AttachmentKindEnergyBill      AttachmentKind = "energy_bill"
	AttachmentKindPowerOfAttorney AttachmentKind = "power_of_attorney"
	AttachmentKindOther           AttachmentKind = "other"
)

// AttachmentKinds lists every category in display order.
var AttachmentKinds = []AttachmentKind{
	AttachmentKindIdentity,
	AttachmentKindEnergyBill,
	AttachmentKindPowerOfAttorney,
	AttachmentKindOther,
}

// IsValid returns true if the kind is a recognized category.
func (k AttachmentKind) IsValid() bool {
	switch k {
	case AttachmentKindIdentity, AttachmentKindEnergyBill,
		AttachmentKindPowerOfAttorney, AttachmentKindOther:
		return true
	}
	return false
}

const (
	// MaxAttachmentSize is the largest file accepted for upload (15MB).
	MaxAttachmentSize = 15 * 1024 * 1024

	// AttachmentMaxDimension bounds the width and height of stored images.
	AttachmentMaxDimension = 800

	// AttachmentJPEGQuality is the quality stored images are re-encoded at.
	AttachmentJPEGQuality = 50
)

// Attachment is a file embedded in a client record. Data is a "data:" URL;
// for images it holds the downscaled JPEG, for anything else the original
// bytes. MIMEType and Size describe the file as it was uploaded.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MIMEType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Data       string    `json:"data"`
}

// ValidateAttachmentSize rejects files over MaxAttachmentSize before any
// decoding work is done.
func ValidateAttachmentSize(name string, size int64) error {
	if size > MaxAttachmentSize {
		return Errorf(ETOOLARGE, "attachment.validate", "%s is %.1fMB; files must be smaller than %dMB", name, float64(size)/(1024*1024), MaxAttachmentSize/(1024*1024))
	}
	if size == 0 {
		return Invalid("attachment.validate", name+" is empty")
	}
	return nil
}
