package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/handler"
	mw "github.com/slmes-creator/job-posting/internal/middleware"
	"github.com/slmes-creator/job-posting/internal/models"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Jobs      *handler.JobHandler
	Apps      *handler.ApplicationHandler
	Resumes   *handler.ResumeHandler
	Dashboard *handler.DashboardHandler
	Email     *handler.EmailHandler
	Health    *handler.HealthHandler
}

type Options struct {
	JWTSecret   string
	Revocations auth.RevocationChecker
	CORSOrigins []string
	Logger      *slog.Logger
}

func New(opts Options, h Handlers) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authenticated := auth.Middleware(opts.JWTSecret, opts.Revocations)
	volunteer := auth.RequireRole(models.RoleVolunteer)
	organization := auth.RequireRole(models.RoleOrganization)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logger(logger))
	r.Use(mw.CORS(opts.CORSOrigins))

	r.Get("/healthz", h.Health.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/register", h.Auth.Register)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/logout", h.Auth.Logout)

			r.Post("/resumes", h.Resumes.Upload)
			r.Get("/resumes/{id}", h.Resumes.Download)

			r.Route("/volunteer", func(r chi.Router) {
				r.Use(volunteer)
				r.Get("/dashboard", h.Dashboard.Volunteer)
				r.Get("/jobs", h.Jobs.ListOpen)
				r.Get("/jobs/{id}", h.Apps.JobDetail)
				r.Post("/jobs/{id}/apply", h.Apps.Apply)
				r.Get("/applications", h.Apps.ListMine)
			})

			r.Route("/organization", func(r chi.Router) {
				r.Use(organization)
				r.Get("/dashboard", h.Dashboard.Organization)
				r.Get("/jobs", h.Jobs.ListMine)
				r.Post("/jobs", h.Jobs.Create)
				r.Post("/jobs/drafts", h.Jobs.SaveDraft)
				r.Get("/jobs/{id}", h.Jobs.Get)
				r.Put("/jobs/{id}", h.Jobs.Update)
				r.Get("/jobs/{id}/applications", h.Apps.ListForJob)
				r.Get("/applications/{applicationId}", h.Apps.Review)
				r.Post("/applications/{applicationId}/decision", h.Apps.Decide)
				r.Post("/applications/{applicationId}/complete", h.Apps.Complete)
			})
		})
	})

	// Email endpoints keep their unversioned paths.
	r.Group(func(r chi.Router) {
		r.Use(authenticated, organization)
		r.Post("/api/send-email", h.Email.Send)
		r.Get("/api/test-email", h.Email.Test)
	})

	return r
}
