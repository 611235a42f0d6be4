package repository

import (
	"context"

	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/models"
)

const UsersCollection = "vh_users"

type UserRepo struct {
	pool *db.Pool
}

func NewUserRepo(pool *db.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateUniqueIndex(ctx, UsersCollection, "email"); err != nil {
		return err
	}
	return c.CreateIndex(ctx, UsersCollection, "role")
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	doc, err := r.pool.Get().FindOne(ctx, UsersCollection, map[string]any{"email": email})
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.User](doc)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.pool.Get().FindOne(ctx, UsersCollection, byID(id))
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[models.User](doc)
}

// Create inserts the user. A taken email returns ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, user *models.User) (string, error) {
	result, err := r.pool.Get().Insert(ctx, UsersCollection, toDoc(user))
	if err != nil {
		return "", translate(err)
	}
	return extractID(result), nil
}

// Update applies a partial $set to the user.
func (r *UserRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := r.pool.Get().UpdateOne(ctx, UsersCollection, byID(id), map[string]any{"$set": fields})
	return err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	return r.pool.Get().Count(ctx, UsersCollection, map[string]any{})
}
