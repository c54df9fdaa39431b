// Package shared holds the JSON response helpers used by every handler, so
// error envelopes stay consistent across the API surface.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and a JSON
// error envelope. Unknown errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["detail"] = err.Error()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
