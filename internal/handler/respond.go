package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/DukeRupert/solartek/internal/domain"
)

// maxJSONBody bounds request bodies for record edits. Attachments and
// backups have their own limits.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.TooLarge("handler.decode", "The request body is too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid("handler.decode", "The request body is empty")
		default:
			return domain.Wrap(err, domain.EINVALID, "handler.decode", "The request body is not valid JSON")
		}
	}
	return nil
}

// contentDisposition builds an inline or attachment header value with the
// filename escaped for non-ASCII names.
func contentDisposition(inline bool, filename string) string {
	kind := "attachment"
	if inline {
		kind = "inline"
	}
	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return kind
}
