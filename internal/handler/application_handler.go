package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/service"
)

// multipart overhead allowed on top of the résumé itself
const formSlack = 1 << 20

type ApplicationHandler struct {
	svc      *service.ApplicationService
	maxBytes int64
}

func NewApplicationHandler(svc *service.ApplicationService, maxResumeBytes int64) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, maxBytes: maxResumeBytes}
}

// Apply accepts either a JSON body or a multipart form whose optional
// "resume" part is stored with the application.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var (
		in     service.ApplyInput
		upload *service.ResumeUpload
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formSlack)
		if err := r.ParseMultipartForm(h.maxBytes + formSlack); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		in.CoverLetter = r.FormValue("coverLetter")
		in.Availability = r.FormValue("availability")
		in.Skills = r.FormValue("skills")
		in.ResumeID = r.FormValue("resumeId")
		if refs := r.FormValue("references"); refs != "" {
			if err := json.Unmarshal([]byte(refs), &in.References); err != nil {
				writeError(w, http.StatusBadRequest, "references must be a JSON object")
				return
			}
		}

		file, header, err := r.FormFile("resume")
		switch {
		case err == nil:
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to read file")
				return
			}
			upload = &service.ResumeUpload{FileName: header.Filename, Data: data}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "invalid resume file")
			return
		}
	} else if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	app, err := h.svc.Submit(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"), in, upload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListMine(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeApplications(w, apps)
}

// JobDetail is the volunteer's view of one job with their own application.
func (h *ApplicationHandler) JobDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetForVolunteer(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ApplicationHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListForJob(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeApplications(w, apps)
}

func (h *ApplicationHandler) Review(w http.ResponseWriter, r *http.Request) {
	review, err := h.svc.GetForReview(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "applicationId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ApplicationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Message  string `json:"message"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := h.svc.Decide(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "applicationId"), req.Decision, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours *float64 `json:"hours"`
	}
	// an empty body means the job's offered hours
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := h.svc.Complete(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "applicationId"), req.Hours)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func writeApplications(w http.ResponseWriter, apps []models.Application) {
	if apps == nil {
		apps = []models.Application{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"total":        len(apps),
	})
}
