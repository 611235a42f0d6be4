package repository

import (
	"context"

	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/models"
)

const (
	ApplicationsCollection = "vh_applications"

	// applicationKeyField holds "volunteerId/jobId" under a unique index,
	// so a volunteer can apply to a job once even under concurrent submits.
	applicationKeyField = "applicationKey"
)

type ApplicationRepo struct {
	pool *db.Pool
}

func NewApplicationRepo(pool *db.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

func (r *ApplicationRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	for _, field := range []string{"jobId", "volunteerId", "organizationId", "status"} {
		if err := c.CreateIndex(ctx, ApplicationsCollection, field); err != nil {
			return err
		}
	}
	if err := c.CreateCompositeIndex(ctx, ApplicationsCollection, []string{"volunteerId", "jobId"}); err != nil {
		return err
	}
	return c.CreateUniqueIndex(ctx, ApplicationsCollection, applicationKeyField)
}

// Create inserts the application. A second application by the same
// volunteer to the same job returns ErrDuplicate.
func (r *ApplicationRepo) Create(ctx context.Context, app *models.Application) (string, error) {
	doc := toDoc(app)
	doc[applicationKeyField] = app.VolunteerID + "/" + app.JobID
	result, err := r.pool.Get().Insert(ctx, ApplicationsCollection, doc)
	if err != nil {
		return "", translate(err)
	}
	return extractID(result), nil
}

func (r *ApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	doc, err := r.pool.Get().FindOne(ctx, ApplicationsCollection, byID(id))
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.Application](doc)
}

func (r *ApplicationRepo) FindByVolunteerAndJob(ctx context.Context, volunteerID, jobID string) (*models.Application, error) {
	doc, err := r.pool.Get().FindOne(ctx, ApplicationsCollection, map[string]any{"volunteerId": volunteerID, "jobId": jobID})
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.Application](doc)
}

// FindByJob lists a job's applications, newest first. An empty status
// matches every status.
func (r *ApplicationRepo) FindByJob(ctx context.Context, jobID string, status models.ApplicationStatus) ([]models.Application, error) {
	query := map[string]any{"jobId": jobID}
	if status != "" {
		query["status"] = string(status)
	}
	docs, err := r.pool.Get().Find(ctx, ApplicationsCollection, query, newestFirst("appliedAt", 0))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Application](docs), nil
}

func (r *ApplicationRepo) FindByVolunteer(ctx context.Context, volunteerID string, limit int) ([]models.Application, error) {
	docs, err := r.pool.Get().Find(ctx, ApplicationsCollection, map[string]any{"volunteerId": volunteerID}, newestFirst("appliedAt", limit))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Application](docs), nil
}

func (r *ApplicationRepo) FindByOrganization(ctx context.Context, orgID string, limit int) ([]models.Application, error) {
	docs, err := r.pool.Get().Find(ctx, ApplicationsCollection, map[string]any{"organizationId": orgID}, newestFirst("appliedAt", limit))
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Application](docs), nil
}

// Update applies a partial $set to the application.
func (r *ApplicationRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := r.pool.Get().UpdateOne(ctx, ApplicationsCollection, byID(id), map[string]any{"$set": fields})
	return err
}
