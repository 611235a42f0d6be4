package repository

import (
	"context"

	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/models"
)

const JobsCollection = "vh_jobs"

type JobRepo struct {
	pool *db.Pool
}

func NewJobRepo(pool *db.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateIndex(ctx, JobsCollection, "status"); err != nil {
		return err
	}
	if err := c.CreateIndex(ctx, JobsCollection, "organizationId"); err != nil {
		return err
	}
	return c.CreateCompositeIndex(ctx, JobsCollection, []string{"organizationId", "status"})
}

func (r *JobRepo) Create(ctx context.Context, job *models.Job) (string, error) {
	result, err := r.pool.Get().Insert(ctx, JobsCollection, toDoc(job))
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*models.Job, error) {
	doc, err := r.pool.Get().FindOne(ctx, JobsCollection, byID(id))
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.Job](doc)
}

// FindByStatus lists jobs in a status, newest first. limit <= 0 means all.
func (r *JobRepo) FindByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.Job, error) {
	docs, err := r.pool.Get().Find(ctx, JobsCollection, map[string]any{"status": string(status)}, newestFirst("createdAt", limit))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Job](docs), nil
}

func (r *JobRepo) FindByOrganization(ctx context.Context, orgID string) ([]models.Job, error) {
	docs, err := r.pool.Get().Find(ctx, JobsCollection, map[string]any{"organizationId": orgID}, newestFirst("createdAt", 0))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Job](docs), nil
}

// FindOpenBefore returns open jobs with a date that sorts before cutoff.
// Dates are stored as RFC 3339 strings so lexical order is time order.
func (r *JobRepo) FindOpenBefore(ctx context.Context, cutoff string) ([]models.Job, error) {
	query := map[string]any{"$and": []any{
		map[string]any{"status": string(models.JobOpen)},
		map[string]any{"date": map[string]any{"$gt": "", "$lt": cutoff}},
	}}
	docs, err := r.pool.Get().Find(ctx, JobsCollection, query, nil)
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Job](docs), nil
}

// Replace writes every editable field, zero values included, so a field
// cleared in the form is cleared in the store.
func (r *JobRepo) Replace(ctx context.Context, id string, job *models.Job) error {
	reqs := job.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	set := map[string]any{
		"title":            job.Title,
		"description":      job.Description,
		"organizationName": job.OrganizationName,
		"location":         job.Location,
		"isRemote":         job.IsRemote,
		"date":             job.Date,
		"startTime":        job.StartTime,
		"endTime":          job.EndTime,
		"duration":         job.Duration,
		"hoursOffered":     job.HoursOffered,
		"maxVolunteers":    job.MaxVolunteers,
		"category":         job.Category,
		"requirements":     reqs,
		"contactEmail":     job.ContactEmail,
		"contactPhone":     job.ContactPhone,
		"status":           string(job.Status),
		"updatedAt":        job.UpdatedAt,
	}
	_, err := r.pool.Get().UpdateOne(ctx, JobsCollection, byID(id), map[string]any{"$set": set})
	return err
}

func (r *JobRepo) SetStatus(ctx context.Context, id string, status models.JobStatus, updatedAt string) error {
	_, err := r.pool.Get().UpdateOne(ctx, JobsCollection, byID(id), map[string]any{"$set": map[string]any{
		"status":    string(status),
		"updatedAt": updatedAt,
	}})
	return err
}

func (r *JobRepo) CountByOrganization(ctx context.Context, orgID string, status models.JobStatus) (int, error) {
	return r.pool.Get().Count(ctx, JobsCollection, map[string]any{"organizationId": orgID, "status": string(status)})
}
