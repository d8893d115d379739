package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// JobsHandler reports background job status.
type JobsHandler struct {
	Jobs ports.JobRunner
}

func NewJobsHandler(jobs ports.JobRunner) *JobsHandler {
	return &JobsHandler{Jobs: jobs}
}

// HandleGet returns one job by ID.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.Jobs.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}
