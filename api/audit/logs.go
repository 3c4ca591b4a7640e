// Package audit exposes the assignment audit trail.
package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/dronecoord/core/assignment/logging"
)

// NewLogHandler returns an HTTP handler exposing assignment logs via GET /api/assignments/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Filters: start and end (RFC3339), mission_id, entity_id and action.
func NewLogHandler(store logging.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := logging.LogQuery{
			MissionID: r.URL.Query().Get("mission_id"),
			EntityID:  r.URL.Query().Get("entity_id"),
			Action:    r.URL.Query().Get("action"),
		}
		for param, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := r.URL.Query().Get(param)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+param+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
