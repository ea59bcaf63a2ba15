// Package problem implements RFC 9457 problem-details responses shared by
// every HTTP handler.
package problem

import (
	"encoding/json"
	"net/http"
)

// Details is the application/problem+json payload.
type Details struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Write serializes a problem response. Encoding failures are ignored since
// the status line is already committed.
func Write(w http.ResponseWriter, status int, problemType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
