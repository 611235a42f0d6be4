package repository

import (
	"context"

	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/models"
)

const (
	ResumesCollection = "vh_resumes"
	ResumeBucket      = "resumes"
)

type ResumeRepo struct {
	pool *db.Pool
}

func NewResumeRepo(pool *db.Pool) *ResumeRepo {
	return &ResumeRepo{pool: pool}
}

func (r *ResumeRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, ResumesCollection, "uploadedBy")
}

func (r *ResumeRepo) EnsureBucket(ctx context.Context) error {
	return r.pool.Get().CreateBucket(ctx, ResumeBucket)
}

func (r *ResumeRepo) Create(ctx context.Context, resume *models.Resume) (string, error) {
	result, err := r.pool.Get().Insert(ctx, ResumesCollection, toDoc(resume))
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

func (r *ResumeRepo) FindByID(ctx context.Context, id string) (*models.Resume, error) {
	doc, err := r.pool.Get().FindOne(ctx, ResumesCollection, byID(id))
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.Resume](doc)
}

// HasBlob reports whether key is already stored in the bucket.
func (r *ResumeRepo) HasBlob(ctx context.Context, key string) (bool, error) {
	meta, err := r.pool.Get().HeadObject(ctx, ResumeBucket, key)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

func (r *ResumeRepo) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	return r.pool.Get().PutObject(ctx, ResumeBucket, key, data, contentType, nil)
}

func (r *ResumeRepo) GetBlob(ctx context.Context, key string) ([]byte, error) {
	data, _, err := r.pool.Get().GetObject(ctx, ResumeBucket, key)
	return data, err
}

func (r *ResumeRepo) DeleteBlob(ctx context.Context, key string) error {
	return r.pool.Get().DeleteObject(ctx, ResumeBucket, key)
}
