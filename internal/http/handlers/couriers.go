package handlers

import (
	"net/http"
	"time"

	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
)

// CourierHandler accepts courier location pings over HTTP. The Kafka
// consumer feeds the same queue.
type CourierHandler struct {
	logger logx.Logger
	queue  locationQueue
	now    func() time.Time
}

// NewCourierHandler creates a CourierHandler.
func NewCourierHandler(logger logx.Logger, q locationQueue) *CourierHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &CourierHandler{logger: logger, queue: q, now: func() time.Time { return time.Now().UTC() }}
}

// Location handles POST /couriers/{id}/location. The update is queued and
// answered with 202 before it reaches storage.
func (h *CourierHandler) Location(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req locationRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	at := h.now()
	if req.RecordedAt != nil {
		at = req.RecordedAt.UTC()
	}
	if err := h.queue.Enqueue(r.Context(), id, geo.Point{Lat: req.Lat, Lng: req.Lng}, at); err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
