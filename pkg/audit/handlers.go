package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// ListEventsHandler handles GET /audit/events
// Query params: actor, resource, action, outcome, pageSize, pageToken
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			Actor:    q.Get("actor"),
			Resource: q.Get("resource"),
			Action:   q.Get("action"),
			Outcome:  q.Get("outcome"),
		}

		pageSize := 20
		if ps := q.Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}

		records, nextToken, total, err := store.List(r.Context(), filter, pageSize, q.Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}

		events := make([]eventResponse, len(records))
		for i := range records {
			events[i] = toResponse(&records[i])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// GetEventHandler handles GET /audit/events/{eventId}
func GetEventHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventId")
		record, err := store.Get(r.Context(), eventID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get audit event: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("audit event %q not found", eventID))
			return
		}
		writeJSON(w, http.StatusOK, toResponse(record))
	}
}

type eventResponse struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlationId,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	Actor         string         `json:"actor"`
	Resource      string         `json:"resource"`
	ResourceID    string         `json:"resourceId,omitempty"`
	Action        string         `json:"action"`
	Outcome       string         `json:"outcome"`
	StatusCode    int            `json:"statusCode,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     string         `json:"createdAt"`
}

func toResponse(ev *Event) eventResponse {
	return eventResponse{
		ID:            ev.ID,
		CorrelationID: ev.CorrelationID,
		RequestID:     ev.RequestID,
		Actor:         ev.Actor,
		Resource:      ev.Resource,
		ResourceID:    ev.ResourceID,
		Action:        ev.Action,
		Outcome:       ev.Outcome,
		StatusCode:    ev.StatusCode,
		Metadata:      map[string]any(ev.Metadata),
		CreatedAt:     ev.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
