package service

import (
	"context"
	"time"

	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/models"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type JobStore interface {
	Create(ctx context.Context, job *models.Job) (string, error)
	FindByID(ctx context.Context, id string) (*models.Job, error)
	FindByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.Job, error)
	FindByOrganization(ctx context.Context, orgID string) ([]models.Job, error)
	FindOpenBefore(ctx context.Context, cutoff string) ([]models.Job, error)
	CountByOrganization(ctx context.Context, orgID string, status models.JobStatus) (int, error)
	Replace(ctx context.Context, id string, job *models.Job) error
	SetStatus(ctx context.Context, id string, status models.JobStatus, updatedAt string) error
}

type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) (string, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindByVolunteerAndJob(ctx context.Context, volunteerID, jobID string) (*models.Application, error)
	FindByJob(ctx context.Context, jobID string, status models.ApplicationStatus) ([]models.Application, error)
	FindByVolunteer(ctx context.Context, volunteerID string, limit int) ([]models.Application, error)
	FindByOrganization(ctx context.Context, orgID string, limit int) ([]models.Application, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type ResumeStore interface {
	Create(ctx context.Context, resume *models.Resume) (string, error)
	FindByID(ctx context.Context, id string) (*models.Resume, error)
	HasBlob(ctx context.Context, key string) (bool, error)
	PutBlob(ctx context.Context, key string, data []byte, contentType string) error
	GetBlob(ctx context.Context, key string) ([]byte, error)
	DeleteBlob(ctx context.Context, key string) error
}

// Notifier delivers decision emails.
type Notifier interface {
	SendDecision(ctx context.Context, e mail.DecisionEmail) error
}

type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
