// Package domain contains core business types and interfaces.
//
// This file defines the Client record: a customer of the installation
// business together with the technical data of their installation, the
// project-stage history and the documents collected for the utility.
package domain

import (
	"net/mail"
	"strings"
	"time"
)

// =============================================================================
// Document Status
// =============================================================================

// DocumentStatus tracks one category of paperwork collected from a client.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusReceived DocumentStatus = "received"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// IsValid returns true if the status is a recognized value.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusReceived,
		DocumentStatusApproved, DocumentStatusRejected:
		return true
	}
	return false
}

// =============================================================================
// Client Domain Type
// =============================================================================

// Client is a customer record. It is persisted as one document, attachments
// included.
type Client struct {
	ID string `json:"id"`

	// Personal data
	Name           string `json:"name"`
	TaxID          string `json:"tax_id"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	PostalCode     string `json:"postal_code"`
	Street         string `json:"street"`
	Number         string `json:"number"`
	Complement     string `json:"complement"`
	Neighborhood   string `json:"neighborhood"`
	City           string `json:"city"`
	ReferencePoint string `json:"reference_point,omitempty"`

	// Installation data
	ConsumerUnit   string `json:"consumer_unit"`
	UtilityCompany string `json:"utility_company"`
	BreakerRating  string `json:"breaker_rating"`
	SystemType     string `json:"system_type"`
	UTMNorthing    string `json:"utm_northing,omitempty"`
	UTMEasting     string `json:"utm_easting,omitempty"`
	UTMZone        string `json:"utm_zone,omitempty"`

	// Project data. The three milestone dates predate StageDates and are
	// only read as timeline fallbacks.
	ProjectHours          float64          `json:"project_hours"`
	HomologationEntryDate string           `json:"homologation_entry_date"`
	UtilityResponseDate   string           `json:"utility_response_date"`
	InspectionDate        string           `json:"inspection_date"`
	Status                Stage            `json:"status"`
	StageDates            map[Stage]string `json:"stage_dates"`
	CreatedAt             time.Time        `json:"created_at"`

	// Documentation
	IdentityDocStatus     DocumentStatus `json:"identity_doc_status"`
	EnergyBillStatus      DocumentStatus `json:"energy_bill_status"`
	PowerOfAttorneyStatus DocumentStatus `json:"power_of_attorney_status"`
	OtherDocsStatus       DocumentStatus `json:"other_docs_status"`

	IdentityAttachments        []Attachment `json:"identity_attachments"`
	EnergyBillAttachments      []Attachment `json:"energy_bill_attachments"`
	PowerOfAttorneyAttachments []Attachment `json:"power_of_attorney_attachments"`
	OtherAttachments           []Attachment `json:"other_attachments"`
}

// RecordID implements the persistence key contract.
func (c Client) RecordID() string { return c.ID }

// NewClient returns an empty client created at now: first stage, entered
// today, with every document category pending.
func NewClient(now time.Time) Client {
	first := Stages[0]
	return Client{
		ID:                         NewID(ClientIDPrefix, now),
		Status:                     first,
		StageDates:                 map[Stage]string{first: FormatDate(now)},
		CreatedAt:                  now,
		IdentityDocStatus:          DocumentStatusPending,
		EnergyBillStatus:           DocumentStatusPending,
		PowerOfAttorneyStatus:      DocumentStatusPending,
		OtherDocsStatus:            DocumentStatusPending,
		IdentityAttachments:        []Attachment{},
		EnergyBillAttachments:      []Attachment{},
		PowerOfAttorneyAttachments: []Attachment{},
		OtherAttachments:           []Attachment{},
	}
}

// Normalize fills nil collections and blank statuses so that records read
// from older backups behave like freshly created ones.
func (c *Client) Normalize() {
	if c.StageDates == nil {
		c.StageDates = map[Stage]string{}
	}
	for _, s := range []*DocumentStatus{&c.IdentityDocStatus, &c.EnergyBillStatus, &c.PowerOfAttorneyStatus, &c.OtherDocsStatus} {
		if *s == "" {
			*s = DocumentStatusPending
		}
	}
	for _, kind := range AttachmentKinds {
		if c.Attachments(kind) == nil {
			c.SetAttachments(kind, []Attachment{})
		}
	}
}

// HasAddress returns true if the client has enough address data to geocode.
func (c *Client) HasAddress() bool {
	return c.Street != "" || c.PostalCode != ""
}

// HasUTM returns true once coordinates have been derived for the client.
func (c *Client) HasUTM() bool {
	return c.UTMZone != "" && c.UTMNorthing != "" && c.UTMEasting != ""
}

// FullAddress returns a formatted single-line address.
func (c *Client) FullAddress() string {
	parts := make([]string, 0, 5)
	street := strings.TrimSpace(c.Street)
	if street != "" && c.Number != "" {
		street += ", " + c.Number
	}
	for _, p := range []string{street, c.Neighborhood, c.City, c.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Attachments returns the attachment list of the given category.
func (c *Client) Attachments(kind AttachmentKind) []Attachment {
	switch kind {
	case AttachmentKindIdentity:
		return c.IdentityAttachments
	case AttachmentKindEnergyBill:
		return c.EnergyBillAttachments
	case AttachmentKindPowerOfAttorney:
		return c.PowerOfAttorneyAttachments
	case AttachmentKindOther:
		return c.OtherAttachments
	}
	return nil
}

// SetAttachments replaces the attachment list of the given category.
func (c *Client) SetAttachments(kind AttachmentKind, list []Attachment) {
	switch kind {
	case AttachmentKindIdentity:
		c.IdentityAttachments = list
	case AttachmentKindEnergyBill:
		c.EnergyBillAttachments = list
	case AttachmentKindPowerOfAttorney:
		c.PowerOfAttorneyAttachments = list
	case AttachmentKindOther:
		c.OtherAttachments = list
	}
}

// FindAttachment looks up one attachment by id within a category.
func (c *Client) FindAttachment(kind AttachmentKind, id string) (Attachment, bool) {
	for _, a := range c.Attachments(kind) {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// Validate checks the record before it is persisted.
func (c *Client) Validate() error {
	const op = "client.validate"

	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError(op, "name", "name is required")
	}
	if len(c.Name) > 255 {
		return NewValidationError(op, "name", "name must be 255 characters or less")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return NewValidationError(op, "email", "email is not a valid address")
		}
	}
	if !c.Status.IsValid() {
		return NewValidationError(op, "status", "status is not a recognized project stage")
	}
	if c.ProjectHours < 0 {
		return NewValidationError(op, "project_hours", "project hours cannot be negative")
	}
	docs := map[string]DocumentStatus{
		"identity_doc_status":      c.IdentityDocStatus,
		"energy_bill_status":       c.EnergyBillStatus,
		"power_of_attorney_status": c.PowerOfAttorneyStatus,
		"other_docs_status":        c.OtherDocsStatus,
	}
	for field, s := range docs {
		if !s.IsValid() {
			return NewValidationError(op, field, "document status must be pending, received, approved or rejected")
		}
	}
	return nil
}

// =============================================================================
// Client Service Parameters
// =============================================================================

// ClientInput carries the user-editable fields of a client. Identity,
// creation time, stage history and attachments are managed by the service.
type ClientInput struct {
	Name           string `json:"name"`
	TaxID          string `json:"tax_id"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	PostalCode     string `json:"postal_code"`
	Street         string `json:"street"`
	Number         string `json:"number"`
	Complement     string `json:"complement"`
	Neighborhood   string `json:"neighborhood"`
	City           string `json:"city"`
	ReferencePoint string `json:"reference_point"`

	ConsumerUnit   string `json:"consumer_unit"`
	UtilityCompany string `json:"utility_company"`
	BreakerRating  string `json:"breaker_rating"`
	SystemType     string `json:"system_type"`

	ProjectHours          float64 `json:"project_hours"`
	HomologationEntryDate string  `json:"homologation_entry_date"`
	UtilityResponseDate   string  `json:"utility_response_date"`
	InspectionDate        string  `json:"inspection_date"`

	// Status is optional on create (defaults to the first stage). On update
	// a different value is applied through SetStatus.
	Status Stage `json:"status"`

	IdentityDocStatus     DocumentStatus `json:"identity_doc_status"`
	EnergyBillStatus      DocumentStatus `json:"energy_bill_status"`
	PowerOfAttorneyStatus DocumentStatus `json:"power_of_attorney_status"`
	OtherDocsStatus       DocumentStatus `json:"other_docs_status"`
}

// Apply copies the editable fields onto c. Tax id, phone and postal code are
// normalized to their display masks. Status is left alone; blank document
// statuses keep their current value.
func (in ClientInput) Apply(c *Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.TaxID = FormatTaxID(in.TaxID)
	c.Phone = FormatPhone(in.Phone)
	c.Email = strings.TrimSpace(in.Email)
	c.PostalCode = FormatPostalCode(in.PostalCode)
	c.Street = strings.TrimSpace(in.Street)
	c.Number = strings.TrimSpace(in.Number)
	c.Complement = strings.TrimSpace(in.Complement)
	c.Neighborhood = strings.TrimSpace(in.Neighborhood)
	c.City = strings.TrimSpace(in.City)
	c.ReferencePoint = strings.TrimSpace(in.ReferencePoint)
	c.ConsumerUnit = strings.TrimSpace(in.ConsumerUnit)
	c.UtilityCompany = strings.TrimSpace(in.UtilityCompany)
	c.BreakerRating = strings.TrimSpace(in.BreakerRating)
	c.SystemType = strings.TrimSpace(in.SystemType)
	c.ProjectHours = in.ProjectHours
	c.HomologationEntryDate = in.HomologationEntryDate
	c.UtilityResponseDate = in.UtilityResponseDate
	c.InspectionDate = in.InspectionDate

	if in.IdentityDocStatus != "" {
		c.IdentityDocStatus = in.IdentityDocStatus
	}
	if in.EnergyBillStatus != "" {
		c.EnergyBillStatus = in.EnergyBillStatus
	}
	if in.PowerOfAttorneyStatus != "" {
		c.PowerOfAttorneyStatus = in.PowerOfAttorneyStatus
	}
	if in.OtherDocsStatus != "" {
		c.OtherDocsStatus = in.OtherDocsStatus
	}
}

// AddressChanged reports whether applying in to c would move the client.
func (in ClientInput) AddressChanged(c *Client) bool {
	return FormatPostalCode(in.PostalCode) != c.PostalCode ||
		strings.TrimSpace(in.Street) != c.Street ||
		strings.TrimSpace(in.Number) != c.Number ||
		strings.TrimSpace(in.City) != c.City
}
