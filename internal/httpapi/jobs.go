package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// ─── Request bodies ──────────────────────────────────────────────────────────

type submitBidRequest struct {
	Bid              float64    `json:"bid"`
	ProposedDateTime *time.Time `json:"proposed_date_time"`
}

type confirmRequest struct {
	ServiceProviderID string  `json:"service_provider_id"`
	Bid               float64 `json:"bid"`
}

type advanceRequest struct {
	NewStatus string `json:"newStatus"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// JobsHandler serves the /jobs routes. Every route expects the x-user-id
// header forwarded by the gateway; whether it names a customer or a provider
// depends on the route.
type JobsHandler struct {
	svc *marketplace.Service
	log *logging.Logger
}

// NewJobsHandler returns a configured JobsHandler.
func NewJobsHandler(svc *marketplace.Service, log *logging.Logger) *JobsHandler {
	return &JobsHandler{svc: svc, log: log}
}

// Routes mounts the job routes on r.
//
//	POST   /jobs                  → create a job (customer)
//	GET    /jobs                  → customer snapshot
//	GET    /jobs/open             → provider snapshot
//	GET    /jobs/{id}             → one job with its bid count
//	GET    /jobs/{id}/bids        → bids on a job
//	POST   /jobs/{id}/bids        → submit or replace a bid (provider)
//	DELETE /jobs/{id}/bids        → withdraw a bid (provider)
//	POST   /jobs/{id}/confirm     → pick a provider (customer)
//	POST   /jobs/{id}/release     → provider backs out of a confirmed job
//	POST   /jobs/{id}/advance     → provider progress
func (h *JobsHandler) Routes(r chi.Router) {
	r.Use(requireUser)
	r.Post("/", h.createJob)
	r.Get("/", h.customerJobs)
	r.Get("/open", h.providerJobs)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getJob)
		r.Get("/bids", h.listBids)
		r.Post("/bids", h.submitBid)
		r.Delete("/bids", h.cancelBid)
		r.Post("/confirm", h.confirm)
		r.Post("/release", h.release)
		r.Post("/advance", h.advance)
	})
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *JobsHandler) createJob(w http.ResponseWriter, r *http.Request) {
	var in marketplace.JobInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	job, err := h.svc.CreateJob(r.Context(), userID(r), in)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonStatus(w, http.StatusCreated, job)
}

func (h *JobsHandler) customerJobs(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.CustomerSnapshot(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, views)
}

func (h *JobsHandler) providerJobs(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ProviderSnapshot(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, views)
}

func (h *JobsHandler) getJob(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, view)
}

func (h *JobsHandler) listBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.svc.ListBids(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, bids)
}

func (h *JobsHandler) submitBid(w http.ResponseWriter, r *http.Request) {
	var body submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	res, err := h.svc.SubmitBid(r.Context(), userID(r), chi.URLParam(r, "id"), body.Bid, body.ProposedDateTime)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, res)
}

func (h *JobsHandler) cancelBid(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelBid(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, map[string]string{"status": "cancelled"})
}

func (h *JobsHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var body confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	job, err := h.svc.ConfirmProvider(r.Context(), userID(r), chi.URLParam(r, "id"), body.ServiceProviderID, body.Bid)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, job)
}

func (h *JobsHandler) release(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.CancelConfirmedJob(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, job)
}

func (h *JobsHandler) advance(w http.ResponseWriter, r *http.Request) {
	var body advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus == "" {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}
	job, err := h.svc.AdvanceJob(r.Context(), userID(r), chi.URLParam(r, "id"), body.NewStatus)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	jsonOK(w, job)
}
