package jobs

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the job API. kinds lists the job kinds
// that may be enqueued on demand; limiter may be nil.
func Router(store *JobStore, kinds []string, limiter *TriggerLimiter) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListJobsHandler(store))
	r.Post("/", EnqueueJobHandler(store, kinds, limiter))
	r.Get("/{jobId}", GetJobHandler(store))
	r.Post("/{jobId}:cancel", CancelJobHandler(store))
	return r
}
