package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/service"
)

type ResumeHandler struct {
	svc *service.ResumeService
}

func NewResumeHandler(svc *service.ResumeService) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxBytes() + formSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	resume, err := h.svc.Upload(r.Context(), auth.GetUser(r.Context()).UserID, header.Filename, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"resume": resume,
		"url":    service.ResumeURL(resume.ID),
	})
}

func (h *ResumeHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUser(r.Context())
	data, resume, err := h.svc.Download(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", resume.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename=%q`, disposition(resume.ContentType), resume.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// disposition lets browsers preview PDFs and images and downloads the rest.
func disposition(contentType string) string {
	if contentType == "application/pdf" || strings.HasPrefix(contentType, "image/") {
		return "inline"
	}
	return "attachment"
}
