package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Service Status
// =============================================================================

// ServiceStatus is the billing state of a service rendered to a client.
type ServiceStatus string

const (
	ServiceStatusQuote      ServiceStatus = "quote"
	ServiceStatusApproved   ServiceStatus = "approved"
	ServiceStatusInProgress ServiceStatus = "in_progress"
	ServiceStatusDone       ServiceStatus = "done"
	ServiceStatusPaid       ServiceStatus = "paid"
	ServiceStatusCancelled  ServiceStatus = "cancelled"
)

// IsValid returns true if the status is a recognized value.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusQuote, ServiceStatusApproved, ServiceStatusInProgress,
		ServiceStatusDone, ServiceStatusPaid, ServiceStatusCancelled:
		return true
	}
	return false
}

// IsActive returns true for committed work that has not been paid yet.
func (s ServiceStatus) IsActive() bool {
	switch s {
	case ServiceStatusApproved, ServiceStatusInProgress, ServiceStatusDone:
		return true
	}
	return false
}

// ServiceType is the kind of work billed.
type ServiceType string

const (
	ServiceTypeConsulting   ServiceType = "consulting"
	ServiceTypeDesign       ServiceType = "design"
	ServiceTypeHomologation ServiceType = "homologation"
	ServiceTypeInspection   ServiceType = "inspection"
	ServiceTypeInstallation ServiceType = "installation"
)

// IsValid returns true if the type is a recognized value.
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeConsulting, ServiceTypeDesign, ServiceTypeHomologation,
		ServiceTypeInspection, ServiceTypeInstallation:
		return true
	}
	return false
}

// =============================================================================
// Service Domain Type
// =============================================================================

// Service is one billable piece of work for a client. ClientName is a
// snapshot taken when the service is saved; later renames of the client do
// not propagate.
type Service struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"client_id"`
	ClientName    string          `json:"client_name"`
	Type          ServiceType     `json:"type"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Status        ServiceStatus   `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	ServiceDate   string          `json:"service_date"`
	DueDate       string          `json:"due_date"`
	PaymentDate   string          `json:"payment_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordID implements the persistence key contract.
func (s Service) RecordID() string { return s.ID }

// ServiceInput carries the editable fields of a service.
type ServiceInput struct {
	ClientID      string          `json:"client_id"`
	Type          ServiceType     `json:"type"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Status        ServiceStatus   `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	ServiceDate   string          `json:"service_date"`
	DueDate       string          `json:"due_date"`
	PaymentDate   string          `json:"payment_date"`
}

// Apply copies the editable fields onto s.
func (in ServiceInput) Apply(s *Service) {
	s.ClientID = strings.TrimSpace(in.ClientID)
	s.Type = in.Type
	s.Description = strings.TrimSpace(in.Description)
	s.Amount = in.Amount
	s.Status = in.Status
	s.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	s.ServiceDate = in.ServiceDate
	s.DueDate = in.DueDate
	s.PaymentDate = in.PaymentDate
}

// Validate checks the record before it is persisted.
func (s *Service) Validate() error {
	const op = "service.validate"

	if s.ClientID == "" {
		return NewValidationError(op, "client_id", "client is required")
	}
	if !s.Type.IsValid() {
		return NewValidationError(op, "type", "service type is not recognized")
	}
	if strings.TrimSpace(s.Description) == "" {
		return NewValidationError(op, "description", "description is required")
	}
	if s.Amount.IsNegative() {
		return NewValidationError(op, "amount", "amount cannot be negative")
	}
	if !s.Status.IsValid() {
		return NewValidationError(op, "status", "status must be quote, approved, in_progress, done, paid or cancelled")
	}
	for field, date := range map[string]string{
		"service_date": s.ServiceDate,
		"due_date":     s.DueDate,
		"payment_date": s.PaymentDate,
	} {
		if date == "" {
			continue
		}
		if _, ok := ParseDate(date); !ok {
			return NewValidationError(op, field, "date must be formatted YYYY-MM-DD")
		}
	}
	if s.Status == ServiceStatusPaid && s.PaymentDate == "" {
		return NewValidationError(op, "payment_date", "payment date is required for paid services")
	}
	return nil
}
