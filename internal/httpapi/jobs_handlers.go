package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/events"
	"talentscout-engine/internal/scheduler"
	"talentscout-engine/internal/store"
)

type JobsHandler struct {
	Scheduler *scheduler.Scheduler
	Store     *store.DB
	Hub       *events.Hub
}

// Submit accepts a job description and queues a sourcing run. Responds
// 202 with the queued job; a submission that cannot be parsed is a 400.
func (h JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.JobSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		WriteError(w, r, http.StatusBadRequest, codeInvalidJSON, err.Error())
		return
	}

	job, err := h.Scheduler.Submit(r.Context(), sub)
	if err != nil {
		var parseErr *domain.JobParseError
		if errors.As(err, &parseErr) {
			WriteDomainError(w, r, err)
			return
		}
		WriteError(w, r, http.StatusServiceUnavailable, codeSubmitFailed, err.Error())
		return
	}

	h.Hub.Publish(events.Make(job.ID, "job_created", map[string]string{"title": job.Requirement.Title}))
	WriteJSON(w, http.StatusAccepted, job)
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.Scheduler.Jobs()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	// results are heavy; the listing carries state only
	for i := range jobs {
		jobs[i].Ranked = nil
		jobs[i].Top = nil
		jobs[i].Profiles = nil
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// GetByPath serves /jobs/{id} (status) and /jobs/{id}/results (ranking).
func (h JobsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, codeInvalidID, "job id required")
		return
	}

	switch tail {
	case "":
		h.status(w, r, id)
	case "results":
		h.results(w, r, id)
	default:
		WriteError(w, r, http.StatusNotFound, codeNotFound, "unknown resource")
	}
}

func (h JobsHandler) status(w http.ResponseWriter, r *http.Request, id string) {
	if job, ok := h.Scheduler.Job(id); ok {
		job.Ranked = nil
		job.Top = nil
		job.Profiles = nil
		WriteJSON(w, http.StatusOK, job)
		return
	}
	// fall back to persisted history for jobs from previous runs
	rec, err := h.Store.LoadJob(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (h JobsHandler) results(w http.ResponseWriter, r *http.Request, id string) {
	if job, ok := h.Scheduler.Job(id); ok {
		switch {
		case job.State == domain.JobFailed:
			WriteJSON(w, http.StatusOK, map[string]any{
				"id": job.ID, "state": job.State, "failure_reason": job.FailureReason,
			})
			return
		case job.State != domain.JobDone:
			WriteJSON(w, http.StatusAccepted, map[string]any{
				"id": job.ID, "state": job.State,
			})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"id": job.ID, "state": job.State,
			"top": job.Top, "ranked": job.Ranked,
		})
		return
	}

	ranked, err := h.Store.Ranking(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if len(ranked) == 0 {
		WriteError(w, r, http.StatusNotFound, codeNotFound, "no results for job")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"id": id, "state": domain.JobDone, "ranked": ranked})
}
