// Package problem emits RFC 7807 responses for the documentation preview
// server, carrying the identifier of the generation run that produced the
// state being served.
package problem

import (
	"encoding/json"
	"net/http"
)

// Response represents an RFC 7807 problem document.
type Response struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	RunID    string `json:"runId,omitempty"`
}

// Write emits a problem+json response.
func Write(w http.ResponseWriter, status int, title, detail, runID, instance string) {
	resp := Response{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
		RunID:    runID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// NotGenerated reports that no artifacts exist yet for the requested path.
func NotGenerated(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, http.StatusServiceUnavailable, "Documentation Not Generated", detail, "", r.URL.Path)
}
