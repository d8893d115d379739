package handlers

import (
	"context"
	"net/http"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// FeedsHandler triggers feed synchronizations.
type FeedsHandler struct {
	Syncer      ports.FeedSyncer
	Jobs        ports.JobRunner
	DefaultDays int
}

// NewFeedsHandler creates a new FeedsHandler
func NewFeedsHandler(syncer ports.FeedSyncer, jobs ports.JobRunner, defaultDays int) *FeedsHandler {
	if defaultDays < 1 {
		defaultDays = 30
	}
	return &FeedsHandler{Syncer: syncer, Jobs: jobs, DefaultDays: defaultDays}
}

// HandleSyncNVD syncs the enumeration feed. With wait=true the result is
// returned directly, otherwise a queued job is returned with 202.
func (h *FeedsHandler) HandleSyncNVD(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", h.DefaultDays)
	if err != nil {
		writeError(w, err)
		return
	}
	if days <= 0 {
		writeError(w, domain.NewValidationError("days", "must be positive"))
		return
	}

	if wantsWait(r) {
		result, err := h.Syncer.SyncVulnerabilities(r.Context(), days)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	h.submit(w, domain.JobSyncNVD, func(ctx context.Context) (interface{}, error) {
		return h.Syncer.SyncVulnerabilities(ctx, days)
	})
}

// HandleSyncKEV syncs the known-exploited catalog.
func (h *FeedsHandler) HandleSyncKEV(w http.ResponseWriter, r *http.Request) {
	if wantsWait(r) {
		result, err := h.Syncer.SyncKnownExploited(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	h.submit(w, domain.JobSyncKEV, func(ctx context.Context) (interface{}, error) {
		return h.Syncer.SyncKnownExploited(ctx)
	})
}

func (h *FeedsHandler) submit(w http.ResponseWriter, kind domain.JobKind, fn ports.JobFunc) {
	job, err := h.Jobs.Submit(kind, fn)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}
