package handler

import (
	"net/http"

	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/service"
)

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Volunteer(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Volunteer(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *DashboardHandler) Organization(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Organization(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
