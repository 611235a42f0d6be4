package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/repository"
)

const minPasswordLength = 6

type AuthService struct {
	users       UserStore
	revocations RevocationStore
	jwtSecret   string
	tokenTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthService(users UserStore, revocations RevocationStore, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:       users,
		revocations: revocations,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		logger:      logger,
		now:         time.Now,
	}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// RegisterInput carries the account fields and the profile of one role.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	FullName string `json:"fullName"`
	School   string `json:"school"`
	Grade    int    `json:"grade"`
	Phone    string `json:"phone"`

	OrganizationName string `json:"organizationName"`
	Description      string `json:"description"`
	Website          string `json:"website"`
	Address          string `json:"address"`
	ContactPhone     string `json:"contactPhone"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in RegisterInput) user() (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	u := &models.User{Email: email, Role: in.Role}
	switch in.Role {
	case models.RoleVolunteer:
		u.FullName = strings.TrimSpace(in.FullName)
		if u.FullName == "" {
			return nil, invalid("fullName is required")
		}
		u.School = strings.TrimSpace(in.School)
		u.Grade = in.Grade
		u.Phone = strings.TrimSpace(in.Phone)
		u.DisplayName = u.FullName
		u.AppliedJobs = []string{}
		u.CompletedJobs = []string{}
	case models.RoleOrganization:
		u.OrganizationName = strings.TrimSpace(in.OrganizationName)
		if u.OrganizationName == "" {
			return nil, invalid("organizationName is required")
		}
		u.Description = strings.TrimSpace(in.Description)
		u.Website = strings.TrimSpace(in.Website)
		u.Address = strings.TrimSpace(in.Address)
		u.ContactPhone = strings.TrimSpace(in.ContactPhone)
		u.DisplayName = u.OrganizationName
	default:
		return nil, invalid("role must be volunteer or organization")
	}
	return u, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := in.user()
	if err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.CreatedAt = timestamp(s.now())

	id, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("email already registered")
		}
		return nil, err
	}
	user.ID = id
	s.logger.InfoContext(ctx, "user registered",
		"operation", "auth.register", "outcome", "success", "user_id", id, "role", user.Role)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrUnauthorized
	}
	if s.revocations == nil {
		return ErrNotConfigured
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.Expiry())
}
