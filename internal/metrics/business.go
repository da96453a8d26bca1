package metrics

// ClientCreated records a new client record.
func ClientCreated() {
	ClientsCreated.Inc()
}

// StatusChanged records a project stage transition.
func StatusChanged(stage string) {
	StatusChanges.WithLabelValues(stage).Inc()
}

// AttachmentEncoded records one file processed by the attachment codec.
func AttachmentEncoded(kind, status string) {
	AttachmentsEncoded.WithLabelValues(kind, status).Inc()
}

// StorageFull records a write refused for lack of space.
func StorageFull() {
	StorageFullErrors.Inc()
}

// Backup records a backup operation outcome.
func Backup(operation string, err error) {
	BackupsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// GeoLookup records an external lookup outcome.
func GeoLookup(kind string, err error) {
	GeoLookups.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
