package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/eventapi/internal/app"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const eventDateLayout = "2006-01-02"

// EventCatalog is the minimal interface needed for the event endpoints.
type EventCatalog interface {
	CreateEvent(ctx context.Context, p domain.Principal, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context, p domain.Principal) ([]domain.Event, error)
	GetEvent(ctx context.Context, p domain.Principal, eventID string) (domain.Event, error)
}

type createEventRequest struct {
	Name         string `json:"event_name"`
	Date         string `json:"event_date"`
	TotalTickets *int   `json:"total_tickets"`
}

type eventResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	TotalTickets int    `json:"total_tickets"`
	TicketSold   int    `json:"ticket_sold"`
	Available    int    `json:"available"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Name:         e.Name,
		Date:         e.Date.Format(eventDateLayout),
		TotalTickets: e.TotalTickets,
		TicketSold:   e.TicketSold,
		Available:    e.Available(),
	}
}

// parseEventDate accepts a plain date or a full RFC 3339 timestamp.
func parseEventDate(raw string) (time.Time, error) {
	if t, err := time.Parse(eventDateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// HandleCreateEvent returns an HTTP handler for event creation.
func HandleCreateEvent(svc EventCatalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "authentication required")
			return
		}

		var req createEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TotalTickets == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "total_tickets is required")
			return
		}

		var date *time.Time
		if raw := strings.TrimSpace(req.Date); raw != "" {
			parsed, err := parseEventDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidEventDate, "event_date must be YYYY-MM-DD")
				return
			}
			date = &parsed
		}

		event, err := svc.CreateEvent(r.Context(), p, app.CreateEventInput{
			Name:         req.Name,
			Date:         date,
			TotalTickets: *req.TotalTickets,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(event))
	}
}

// HandleListEvents returns an HTTP handler listing every event.
func HandleListEvents(svc EventCatalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "authentication required")
			return
		}

		events, err := svc.ListEvents(r.Context(), p)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
		for _, event := range events {
			resp.Events = append(resp.Events, toEventResponse(event))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleGetEvent returns an HTTP handler for a single event.
func HandleGetEvent(svc EventCatalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "authentication required")
			return
		}

		event, err := svc.GetEvent(r.Context(), p, mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}
