package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/service"
)

type JobHandler struct {
	svc *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// ListOpen serves the volunteer job board. Query parameters q, location
// and hours narrow the list.
func (h *JobHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := h.svc.ListOpen(r.Context(), service.JobFilter{
		Query:    q.Get("q"),
		Location: q.Get("location"),
		Hours:    q.Get("hours"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":       jobs,
		"total":      len(jobs),
		"categories": models.JobCategories,
	})
}

func (h *JobHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUser(r.Context())
	jobs, err := h.svc.ListForOrganization(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.JobInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := h.svc.Create(r.Context(), auth.GetUser(r.Context()).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req service.JobInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := h.svc.SaveDraft(r.Context(), auth.GetUser(r.Context()).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.JobInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := h.svc.Update(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
