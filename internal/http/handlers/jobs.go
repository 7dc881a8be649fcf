package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/dispatch"
)

// JobHandler serves the job lifecycle endpoints.
type JobHandler struct {
	logger   logx.Logger
	jobs     orchestrator
	dispatch dispatcher
	ledger   settler
	delays   delayMonitor
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(logger logx.Logger, jobs orchestrator, d dispatcher, l settler, delays delayMonitor) *JobHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &JobHandler{logger: logger, jobs: jobs, dispatch: d, ledger: l, delays: delays}
}

// Create handles POST /jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	j, sent, err := h.jobs.CreateJob(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, createJobResponse{Job: jobToResponse(j), OffersSent: sent})
}

// Get handles GET /jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	j, err := h.jobs.Job(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, jobToResponse(j))
}

// Dispatch handles POST /jobs/{id}/dispatch. The body is optional.
func (h *JobHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req dispatchRequest
	if !decodeOptionalJSON(h.logger, w, r, &req) {
		return
	}
	dr := dispatch.Request{JobID: id, Radius: req.RadiusMeters, OfferCap: req.OfferCap}
	if req.Pickup != nil {
		p := req.Pickup.toGeo()
		dr.Pickup = &p
	}
	sent, err := h.dispatch.AssignDispatch(r.Context(), dr)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, dispatchResponse{JobID: id, OffersSent: sent})
}

// Accept handles POST /jobs/{id}/accept.
func (h *JobHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req courierActionRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	if req.CourierID <= 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "courier_id must be positive")
		return
	}
	j, err := h.dispatch.AcceptJob(r.Context(), id, req.CourierID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, jobToResponse(j))
}

// Reject handles POST /jobs/{id}/reject.
func (h *JobHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req courierActionRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	if req.CourierID <= 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "courier_id must be positive")
		return
	}
	if err := h.dispatch.RejectJob(r.Context(), id, req.CourierID, req.Reason); err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transit handles POST /jobs/{id}/transit.
func (h *JobHandler) Transit(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req transitRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	ev, err := domain.ParseTransitEvent(req.Event, req.WarehouseID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	j, err := h.jobs.AdvanceLeg(r.Context(), id, ev)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, jobToResponse(j))
}

// Ready handles POST /jobs/{id}/ready.
func (h *JobHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.withWarehouse(w, r, h.jobs.MarkReadyForNextLeg)
}

// Destination handles PUT /jobs/{id}/destination.
func (h *JobHandler) Destination(w http.ResponseWriter, r *http.Request) {
	h.withWarehouse(w, r, h.jobs.ReassignDestination)
}

func (h *JobHandler) withWarehouse(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, jobID uuid.UUID, warehouseID int64) (*domain.Job, error)) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req warehouseRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	if req.WarehouseID <= 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "warehouse_id must be positive")
		return
	}
	j, err := op(r.Context(), id, req.WarehouseID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, jobToResponse(j))
}

// Cancel handles POST /jobs/{id}/cancel.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req cancelRequest
	if !decodeOptionalJSON(h.logger, w, r, &req) {
		return
	}
	res, err := h.jobs.CancelJob(r.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	out := cancelResponse{Job: jobToResponse(res.Job), Settlement: settlementToResponse(res.Settlement)}
	if res.RTO != nil {
		rto := jobToResponse(res.RTO)
		out.RTO = &rto
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// Settle handles POST /jobs/{id}/settle. Repeated calls return the same
// settlement.
func (h *JobHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.ledger.Settle(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, settlementToResponse(s))
}

// Timing handles GET /jobs/{id}/timing.
func (h *JobHandler) Timing(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.delays.Timing(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, t)
}

// SweepDelays handles POST /delays/sweep.
func (h *JobHandler) SweepDelays(w http.ResponseWriter, r *http.Request) {
	res, err := h.delays.Sweep(r.Context())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, res)
}
