package domain

import "time"

// Snapshot is the backup document: every collection plus the export time.
// A nil slice pointer means the collection was absent from the document, as
// opposed to present and empty.
type Snapshot struct {
	Clients    *[]Client  `json:"clients,omitempty"`
	Services   *[]Service `json:"services,omitempty"`
	Expenses   *[]Expense `json:"expenses,omitempty"`
	ExportedAt time.Time  `json:"exported_at"`
}

// NewSnapshot builds a full snapshot of the given collections.
func NewSnapshot(clients []Client, services []Service, expenses []Expense, now time.Time) Snapshot {
	if clients == nil {
		clients = []Client{}
	}
	if services == nil {
		services = []Service{}
	}
	if expenses == nil {
		expenses = []Expense{}
	}
	return Snapshot{
		Clients:    &clients,
		Services:   &services,
		Expenses:   &expenses,
		ExportedAt: now,
	}
}

// IsEmpty returns true if the snapshot carries no collection at all.
func (s Snapshot) IsEmpty() bool {
	return s.Clients == nil && s.Services == nil && s.Expenses == nil
}

// BackupFilename is the download name of an export taken at now.
func BackupFilename(now time.Time) string {
	return "backup_solartek_" + FormatDate(now) + ".json"
}
