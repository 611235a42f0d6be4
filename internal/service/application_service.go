package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slmes-creator/job-posting/internal/events"
	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/repository"
)

const (
	defaultSenderName = "Organization"
	publishTimeout    = 3 * time.Second
)

type ApplicationService struct {
	apps      ApplicationStore
	jobs      JobStore
	users     UserStore
	resumes   *ResumeService
	notifier  Notifier
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewApplicationService(apps ApplicationStore, jobs JobStore, users UserStore, resumes *ResumeService, notifier Notifier, publisher events.Publisher, logger *slog.Logger) *ApplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationService{
		apps:      apps,
		jobs:      jobs,
		users:     users,
		resumes:   resumes,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

type ApplyInput struct {
	CoverLetter  string           `json:"coverLetter"`
	Availability string           `json:"availability"`
	Skills       string           `json:"skills"`
	References   models.Reference `json:"references"`
	// ResumeID refers to a résumé uploaded earlier by the same volunteer.
	ResumeID string `json:"resumeId,omitempty"`
}

// ResumeUpload is a file attached to an application.
type ResumeUpload struct {
	FileName string
	Data     []byte
}

// Submit files a pending application. An attached file is stored first and
// its failure aborts the submission.
func (s *ApplicationService) Submit(ctx context.Context, volunteerID, jobID string, in ApplyInput, upload *ResumeUpload) (*models.Application, error) {
	volunteer, err := s.users.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer == nil {
		return nil, notFound("volunteer not found")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Status == models.JobDraft {
		return nil, notFound("job not found")
	}
	if job.Status != models.JobOpen {
		return nil, invalid("job is not accepting applications")
	}

	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	in.Availability = strings.TrimSpace(in.Availability)
	if in.CoverLetter == "" {
		return nil, invalid("coverLetter is required")
	}
	if in.Availability == "" {
		return nil, invalid("availability is required")
	}

	existing, err := s.apps.FindByVolunteerAndJob(ctx, volunteerID, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("you have already applied to this job")
	}

	resumeURL, err := s.attachResume(ctx, volunteerID, in.ResumeID, upload)
	if err != nil {
		return nil, err
	}

	now := timestamp(s.now())
	app := &models.Application{
		JobID:           jobID,
		JobTitle:        job.Title,
		OrganizationID:  job.OrganizationID,
		VolunteerID:     volunteerID,
		VolunteerName:   volunteer.DisplayName,
		VolunteerEmail:  volunteer.Email,
		VolunteerPhone:  volunteer.Phone,
		VolunteerSchool: volunteer.School,
		VolunteerGrade:  volunteer.Grade,
		Status:          models.ApplicationPending,
		CoverLetter:     in.CoverLetter,
		Availability:    in.Availability,
		Skills:          strings.TrimSpace(in.Skills),
		ResumeURL:       resumeURL,
		References:      in.References,
		AppliedAt:       now,
		UpdatedAt:       now,
	}
	id, err := s.apps.Create(ctx, app)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflict("you have already applied to this job")
	}
	if err != nil {
		return nil, err
	}
	app.ID = id

	applied := append(append([]string{}, volunteer.AppliedJobs...), jobID)
	if err := s.users.Update(ctx, volunteerID, map[string]any{"appliedJobs": applied}); err != nil {
		s.logger.WarnContext(ctx, "record applied job failed",
			"operation", "applications.submit", "outcome", "degraded", "volunteer_id", volunteerID, "error", err)
	}
	s.publish(ctx, events.ApplicationSubmitted, app, 0)

	s.logger.InfoContext(ctx, "application submitted",
		"operation", "applications.submit", "outcome", "success", "application_id", id, "job_id", jobID)
	return app, nil
}

func (s *ApplicationService) attachResume(ctx context.Context, volunteerID, resumeID string, upload *ResumeUpload) (string, error) {
	if upload != nil {
		resume, err := s.resumes.Upload(ctx, volunteerID, upload.FileName, upload.Data)
		if err != nil {
			return "", fmt.Errorf("upload resume: %w", err)
		}
		return ResumeURL(resume.ID), nil
	}
	if resumeID == "" {
		return "", nil
	}
	resume, err := s.resumes.resumes.FindByID(ctx, resumeID)
	if err != nil {
		return "", err
	}
	if resume == nil || resume.UploadedBy != volunteerID {
		return "", invalid("resumeId does not refer to one of your uploads")
	}
	return ResumeURL(resume.ID), nil
}

func parseStatusFilter(status string) (models.ApplicationStatus, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return "", nil
	}
	s := models.ApplicationStatus(status)
	if !s.Valid() {
		return "", invalid("status must be one of all, pending, approved, declined, completed")
	}
	return s, nil
}

// ListForJob returns a job's applications to the job's owner.
func (s *ApplicationService) ListForJob(ctx context.Context, orgID, jobID, status string) ([]models.Application, error) {
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, notFound("job not found")
	}
	if job.OrganizationID != orgID {
		return nil, forbidden("job belongs to another organization")
	}
	return s.apps.FindByJob(ctx, jobID, filter)
}

func (s *ApplicationService) ListMine(ctx context.Context, volunteerID string) ([]models.Application, error) {
	return s.apps.FindByVolunteer(ctx, volunteerID, 0)
}

// JobDetail is a job as seen by a volunteer, with their application if any.
type JobDetail struct {
	Job         models.Job          `json:"job"`
	Application *models.Application `json:"application"`
}

func (s *ApplicationService) GetForVolunteer(ctx context.Context, volunteerID, jobID string) (*JobDetail, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Status == models.JobDraft {
		return nil, notFound("job not found")
	}
	app, err := s.apps.FindByVolunteerAndJob(ctx, volunteerID, jobID)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: *job, Application: app}, nil
}

// ApplicationReview is an application with the job it targets.
type ApplicationReview struct {
	Application models.Application `json:"application"`
	Job         *models.Job         `json:"job"`
}

func (s *ApplicationService) owned(ctx context.Context, orgID, id string) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, notFound("application not found")
	}
	if app.OrganizationID != orgID {
		return nil, forbidden("application belongs to another organization")
	}
	return app, nil
}

func (s *ApplicationService) GetForReview(ctx context.Context, orgID, id string) (*ApplicationReview, error) {
	app, err := s.owned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.FindByID(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	return &ApplicationReview{Application: *app, Job: job}, nil
}

func parseDecision(d string) (models.ApplicationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "approve", "approved":
		return models.ApplicationApproved, nil
	case "decline", "declined":
		return models.ApplicationDeclined, nil
	}
	return "", invalid("decision must be approve or decline")
}

// Decide approves or declines a pending application. The record update is
// the only step that can fail the call; the email and event afterwards are
// best-effort and their failures are only logged.
func (s *ApplicationService) Decide(ctx context.Context, orgID, id, decision, message string) (*models.Application, error) {
	status, err := parseDecision(decision)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message is required")
	}
	app, err := s.owned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransition(status) {
		return nil, conflict(fmt.Sprintf("application is already %s", app.Status))
	}

	now := timestamp(s.now())
	err = s.apps.Update(ctx, id, map[string]any{
		"status":               string(status),
		"organizationResponse": message,
		"reviewedBy":           orgID,
		"reviewedAt":           now,
		"updatedAt":            now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "application status update failed",
			"operation", "applications.decide", "outcome", "failure", "application_id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStatusUpdate, err)
	}
	app.Status = status
	app.OrganizationResponse = message
	app.ReviewedBy = orgID
	app.ReviewedAt = now
	app.UpdatedAt = now

	s.notify(ctx, orgID, app, message)
	s.publish(ctx, events.ApplicationDecided, app, 0)
	return app, nil
}

func (s *ApplicationService) senderName(ctx context.Context, orgID string) string {
	org, err := s.users.FindByID(ctx, orgID)
	if err != nil || org == nil || org.DisplayName == "" {
		return defaultSenderName
	}
	return org.DisplayName
}

func (s *ApplicationService) notify(ctx context.Context, orgID string, app *models.Application, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.SendDecision(ctx, mail.DecisionEmail{
		To:               app.VolunteerEmail,
		VolunteerName:    app.VolunteerName,
		JobTitle:         app.JobTitle,
		Decision:         string(app.Status),
		Message:          message,
		OrganizationName: s.senderName(ctx, orgID),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "decision email failed",
			"operation", "applications.notify", "outcome", "failure", "application_id", app.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "decision email sent",
		"operation", "applications.notify", "outcome", "success", "application_id", app.ID)
}

func (s *ApplicationService) publish(ctx context.Context, eventType string, app *models.Application, hours float64) {
	if s.publisher == nil {
		return
	}
	e := events.NewApplicationEvent(eventType, s.now())
	e.ApplicationID = app.ID
	e.JobID = app.JobID
	e.VolunteerID = app.VolunteerID
	e.OrganizationID = app.OrganizationID
	e.Status = string(app.Status)
	e.Hours = hours
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := events.PublishApplication(ctx, s.publisher, e); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"operation", "applications.publish", "outcome", "failure", "event_type", eventType, "error", err)
	}
}

// Complete marks an approved application as done and credits the hours.
// A nil hours uses the job's offered hours.
func (s *ApplicationService) Complete(ctx context.Context, orgID, id string, hours *float64) (*models.Application, error) {
	app, err := s.owned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransition(models.ApplicationCompleted) {
		return nil, conflict(fmt.Sprintf("only approved applications can be completed, this one is %s", app.Status))
	}

	var credited float64
	if hours != nil {
		credited = *hours
	} else {
		job, err := s.jobs.FindByID(ctx, app.JobID)
		if err != nil {
			return nil, err
		}
		if job != nil {
			credited = job.HoursOffered
		}
	}
	if credited < 0 {
		return nil, invalid("hours must not be negative")
	}

	now := timestamp(s.now())
	err = s.apps.Update(ctx, id, map[string]any{
		"status":         string(models.ApplicationCompleted),
		"hoursCompleted": credited,
		"completedAt":    now,
		"updatedAt":      now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusUpdate, err)
	}
	app.Status = models.ApplicationCompleted
	app.HoursCompleted = credited
	app.CompletedAt = now
	app.UpdatedAt = now

	if err := s.creditVolunteer(ctx, app, credited); err != nil {
		s.logger.WarnContext(ctx, "credit volunteer hours failed",
			"operation", "applications.complete", "outcome", "degraded", "volunteer_id", app.VolunteerID, "error", err)
	}
	s.publish(ctx, events.ApplicationCompleted, app, credited)
	return app, nil
}

func (s *ApplicationService) creditVolunteer(ctx context.Context, app *models.Application, hours float64) error {
	volunteer, err := s.users.FindByID(ctx, app.VolunteerID)
	if err != nil {
		return err
	}
	if volunteer == nil {
		return errors.New("volunteer not found")
	}
	return s.users.Update(ctx, app.VolunteerID, map[string]any{
		"totalHours":    volunteer.TotalHours + hours,
		"completedJobs": append(append([]string{}, volunteer.CompletedJobs...), app.JobID),
	})
}
