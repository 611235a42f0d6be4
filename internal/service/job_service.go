package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/slmes-creator/job-posting/internal/models"
)

const (
	maxDescriptionLength = 1000
	unknownOrganization  = "Unknown Organization"
)

type JobService struct {
	jobs   JobStore
	apps   ApplicationStore
	users  UserStore
	logger *slog.Logger
	now    func() time.Time
}

func NewJobService(jobs JobStore, apps ApplicationStore, users UserStore, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{jobs: jobs, apps: apps, users: users, logger: logger, now: time.Now}
}

// JobInput is the editable part of a job. Date is YYYY-MM-DD and Time an
// optional HH:MM; an RFC 3339 Date is accepted as is.
type JobInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	IsRemote      bool     `json:"isRemote"`
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Duration      string   `json:"duration"`
	HoursOffered  float64  `json:"hoursOffered"`
	MaxVolunteers int      `json:"maxVolunteers"`
	Category      string   `json:"category"`
	Requirements  []string `json:"requirements"`
	ContactEmail  string   `json:"contactEmail"`
	ContactPhone  string   `json:"contactPhone"`
	Status        string   `json:"status,omitempty"`
}

func (in JobInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(in.Location) == "":
		return invalid("location is required")
	case strings.TrimSpace(in.Date) == "":
		return invalid("date is required")
	case strings.TrimSpace(in.Description) == "":
		return invalid("description is required")
	case len([]rune(in.Description)) > maxDescriptionLength:
		return invalid(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	case in.HoursOffered < 0:
		return invalid("hoursOffered must not be negative")
	case in.MaxVolunteers < 0:
		return invalid("maxVolunteers must not be negative")
	}
	return nil
}

// parseJobDate normalizes a form date and optional time to RFC 3339 UTC.
func parseJobDate(date, clock string) (string, error) {
	date = strings.TrimSpace(date)
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return timestamp(t), nil
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.Parse("2006-01-02T15:04", date+"T"+clock)
	if err != nil {
		return "", invalid("date must be YYYY-MM-DD with an optional HH:MM time")
	}
	return timestamp(t), nil
}

func cleanRequirements(reqs []string) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (in JobInput) apply(job *models.Job, date string) {
	job.Title = strings.TrimSpace(in.Title)
	job.Description = strings.TrimSpace(in.Description)
	job.Location = strings.TrimSpace(in.Location)
	job.IsRemote = in.IsRemote
	job.Date = date
	job.StartTime = in.StartTime
	if job.StartTime == "" {
		job.StartTime = strings.TrimSpace(in.Time)
	}
	job.EndTime = in.EndTime
	job.Duration = in.Duration
	job.HoursOffered = in.HoursOffered
	job.MaxVolunteers = in.MaxVolunteers
	job.Category = in.Category
	job.Requirements = cleanRequirements(in.Requirements)
	job.ContactEmail = strings.TrimSpace(in.ContactEmail)
	job.ContactPhone = strings.TrimSpace(in.ContactPhone)
}

func (s *JobService) organizationName(ctx context.Context, orgID string) string {
	org, err := s.users.FindByID(ctx, orgID)
	if err != nil {
		s.logger.WarnContext(ctx, "organization lookup failed",
			"operation", "jobs.create", "outcome", "degraded", "organization_id", orgID, "error", err)
		return unknownOrganization
	}
	if org == nil || org.OrganizationName == "" {
		return unknownOrganization
	}
	return org.OrganizationName
}

// Create publishes a job as open.
func (s *JobService) Create(ctx context.Context, orgID string, in JobInput) (*models.Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	date, err := parseJobDate(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, orgID, in, date, models.JobOpen)
}

// SaveDraft stores whatever was entered without validation. An unparsable
// date is kept verbatim until the draft is published.
func (s *JobService) SaveDraft(ctx context.Context, orgID string, in JobInput) (*models.Job, error) {
	date := strings.TrimSpace(in.Date)
	if date != "" {
		if parsed, err := parseJobDate(in.Date, in.Time); err == nil {
			date = parsed
		}
	}
	return s.insert(ctx, orgID, in, date, models.JobDraft)
}

func (s *JobService) insert(ctx context.Context, orgID string, in JobInput, date string, status models.JobStatus) (*models.Job, error) {
	now := timestamp(s.now())
	job := &models.Job{
		OrganizationID:   orgID,
		OrganizationName: s.organizationName(ctx, orgID),
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	in.apply(job, date)

	id, err := s.jobs.Create(ctx, job)
	if err != nil {
		return nil, err
	}
	job.ID = id
	s.logger.InfoContext(ctx, "job saved",
		"operation", "jobs.create", "outcome", "success", "job_id", id, "status", string(status))
	return job, nil
}

// Update replaces the editable fields of an owned job. Moving to any status
// other than draft requires the same fields as Create.
func (s *JobService) Update(ctx context.Context, orgID, id string, in JobInput) (*models.Job, error) {
	job, err := s.owned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	status := job.Status
	if in.Status != "" {
		status = models.JobStatus(in.Status)
		if !status.Valid() {
			return nil, invalid("status must be one of draft, open, closed, completed")
		}
	}

	date := strings.TrimSpace(in.Date)
	if status != models.JobDraft {
		if err := in.validate(); err != nil {
			return nil, err
		}
		if date, err = parseJobDate(in.Date, in.Time); err != nil {
			return nil, err
		}
	} else if parsed, perr := parseJobDate(in.Date, in.Time); perr == nil {
		date = parsed
	}

	in.apply(job, date)
	job.Status = status
	job.UpdatedAt = timestamp(s.now())
	if err := s.jobs.Replace(ctx, id, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) owned(ctx context.Context, orgID, id string) (*models.Job, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, notFound("job not found")
	}
	if job.OrganizationID != orgID {
		return nil, forbidden("job belongs to another organization")
	}
	return job, nil
}

// Get returns any job to its owner.
func (s *JobService) Get(ctx context.Context, orgID, id string) (*models.Job, error) {
	return s.owned(ctx, orgID, id)
}

// JobFilter narrows the open-job listing. Hours is "min-max", "min+" or "min".
type JobFilter struct {
	Query    string
	Location string
	Hours    string
}

type hoursRange struct {
	min, max float64
	bounded  bool
}

func parseHours(s string) (hoursRange, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "+")
	lo, hi, bounded := strings.Cut(s, "-")
	low, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return hoursRange{}, invalid("hours must look like 1-3 or 10+")
	}
	r := hoursRange{min: low}
	if bounded {
		high, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil || high < low {
			return hoursRange{}, invalid("hours must look like 1-3 or 10+")
		}
		r.max, r.bounded = high, true
	}
	return r, nil
}

func (r hoursRange) contains(h float64) bool {
	if h < r.min {
		return false
	}
	return !r.bounded || h <= r.max
}

// ListOpen returns open jobs newest first, filtered in memory.
func (s *JobService) ListOpen(ctx context.Context, f JobFilter) ([]models.Job, error) {
	var hours *hoursRange
	if strings.TrimSpace(f.Hours) != "" {
		r, err := parseHours(f.Hours)
		if err != nil {
			return nil, err
		}
		hours = &r
	}

	jobs, err := s.jobs.FindByStatus(ctx, models.JobOpen, 0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	loc := strings.ToLower(strings.TrimSpace(f.Location))
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if q != "" &&
			!strings.Contains(strings.ToLower(j.Title), q) &&
			!strings.Contains(strings.ToLower(j.Description), q) &&
			!strings.Contains(strings.ToLower(j.OrganizationName), q) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(j.Location), loc) {
			continue
		}
		if hours != nil && !hours.contains(j.HoursOffered) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// JobSummary is a job with its application counts.
type JobSummary struct {
	models.Job
	ApplicationCount int `json:"applicationCount"`
	PendingCount     int `json:"pendingCount"`
}

type OrganizationJobs struct {
	Published []JobSummary `json:"published"`
	Drafts    []JobSummary `json:"drafts"`
}

// ListForOrganization splits an organization's jobs into published and drafts.
func (s *JobService) ListForOrganization(ctx context.Context, orgID string) (*OrganizationJobs, error) {
	jobs, err := s.jobs.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	apps, err := s.apps.FindByOrganization(ctx, orgID, 0)
	if err != nil {
		return nil, err
	}
	total := make(map[string]int)
	pending := make(map[string]int)
	for _, a := range apps {
		total[a.JobID]++
		if a.Status == models.ApplicationPending {
			pending[a.JobID]++
		}
	}

	out := &OrganizationJobs{Published: []JobSummary{}, Drafts: []JobSummary{}}
	for _, j := range jobs {
		sum := JobSummary{Job: j, ApplicationCount: total[j.ID], PendingCount: pending[j.ID]}
		if j.Status == models.JobDraft {
			out.Drafts = append(out.Drafts, sum)
		} else {
			out.Published = append(out.Published, sum)
		}
	}
	return out, nil
}

// CloseExpired closes open jobs whose ExpiresAt has passed and reports how
// many. A failure on one job is logged and the rest are still processed.
func (s *JobService) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	stamp := timestamp(now)
	jobs, err := s.jobs.FindOpenBefore(ctx, stamp)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, j := range jobs {
		if at, ok := j.ExpiresAt(); ok && now.Before(at) {
			continue
		}
		if err := s.jobs.SetStatus(ctx, j.ID, models.JobClosed, stamp); err != nil {
			s.logger.ErrorContext(ctx, "close expired job failed",
				"operation", "jobs.close_expired", "outcome", "failure", "job_id", j.ID, "error", err)
			continue
		}
		closed++
	}
	return closed, nil
}
