package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/ports"
	"alerttrack/internal/usecase/query"
)

type handlers struct {
	queries *query.Service
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	input := query.ListEventsInput{
		Page:    intParam(r, "page", 1),
		PerPage: intParam(r, "per_page", 10),
		IP:      r.URL.Query().Get("ip"),
		Service: r.URL.Query().Get("service"),
		Search:  r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, &alert.ValidationError{Field: "status", Value: raw, Reason: "expected a boolean"})
			return
		}
		input.Status = &status
	}

	page, err := h.queries.ListEvents(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.queries.GetEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *handlers) listEventMessages(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.queries.ListMessages(r.Context(), query.ListMessagesInput{
		Page:    intParam(r, "page", 1),
		PerPage: intParam(r, "per_page", 10),
		EventID: &eventID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	page, err := h.queries.ListMessages(r.Context(), query.ListMessagesInput{
		Page:    intParam(r, "page", 1),
		PerPage: intParam(r, "per_page", 10),
		Search:  r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) statsByInterval(w http.ResponseWriter, r *http.Request) {
	input := query.CountByIntervalInput{
		Range:    r.URL.Query().Get("range"),
		Interval: r.URL.Query().Get("interval"),
		Filter:   r.URL.Query().Get("filter"),
	}

	if raw := r.URL.Query().Get("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, &alert.ValidationError{Field: "start", Value: raw, Reason: "expected RFC3339 timestamp"})
			return
		}
		input.Start = &start
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, &alert.ValidationError{Field: "end", Value: raw, Reason: "expected RFC3339 timestamp"})
			return
		}
		input.End = &end
	}

	buckets, err := h.queries.CountByInterval(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": buckets})
}

func (h *handlers) statsByMinute(w http.ResponseWriter, r *http.Request) {
	minutesBack := intParam(r, "minutes_back", 60)

	var eventID *uint64
	if raw := r.URL.Query().Get("event_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, &alert.ValidationError{Field: "event_id", Value: raw, Reason: "expected an integer id"})
			return
		}
		eventID = &id
	}

	minutes, err := h.queries.CountByMinute(r.Context(), minutesBack, eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": minutes})
}

func idParam(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &alert.ValidationError{Field: name, Value: raw, Reason: "expected an integer id"}
	}
	return id, nil
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case alert.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ports.ErrEventNotFound) || errors.Is(err, ports.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case alert.IsTransient(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
