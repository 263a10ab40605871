package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the standard API response wrapper: status 1 on success,
// 0 on failure.
type envelope struct {
	Status int  `json:"status"`
	Count  *int `json:"count,omitempty"`
	Data   any  `json:"data,omitempty"`
	Errors any  `json:"errors,omitempty"`
}

// List writes a successful collection response. Count is always present,
// even when zero; data is omitted when empty.
func List(w http.ResponseWriter, status, count int, data any) {
	JSON(w, status, envelope{Status: 1, Count: &count, Data: data})
}

// Item writes a successful single-record response.
func Item(w http.ResponseWriter, status int, data any) {
	one := 1
	JSON(w, status, envelope{Status: 1, Count: &one, Data: data})
}

// OK writes a bare success envelope.
func OK(w http.ResponseWriter, status int) {
	JSON(w, status, envelope{Status: 1})
}

// Error writes a failure envelope. Errors may be a plain string or a
// per-field map of reasons.
func Error(w http.ResponseWriter, status int, errs any) {
	JSON(w, status, envelope{Status: 0, Errors: errs})
}

// JSON writes an arbitrary payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}
