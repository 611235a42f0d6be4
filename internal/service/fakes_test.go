package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/models"
	"github.com/slmes-creator/job-posting/internal/repository"
)

var errStore = errors.New("store unavailable")

type memUsers struct {
	mu      sync.Mutex
	next    int
	byID    map[string]models.User
	failUpd bool
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]models.User{}} }

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return "", repository.ErrDuplicate
		}
	}
	m.next++
	id := "u" + strconv.Itoa(m.next)
	cp := *u
	cp.ID = id
	m.byID[id] = cp
	return id, nil
}

func (m *memUsers) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpd {
		return errStore
	}
	u, ok := m.byID[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "appliedJobs":
			u.AppliedJobs = v.([]string)
		case "completedJobs":
			u.CompletedJobs = v.([]string)
		case "totalHours":
			u.TotalHours = v.(float64)
		}
	}
	m.byID[id] = u
	return nil
}

func (m *memUsers) add(u models.User) string {
	id, _ := m.Create(context.Background(), &u)
	return id
}

type memJobs struct {
	mu   sync.Mutex
	next int
	byID map[string]models.Job
	// order of insertion, oldest first
	ids []string
}

func newMemJobs() *memJobs { return &memJobs{byID: map[string]models.Job{}} }

func (m *memJobs) Create(_ context.Context, j *models.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := "j" + strconv.Itoa(m.next)
	cp := *j
	cp.ID = id
	m.byID[id] = cp
	m.ids = append(m.ids, id)
	return id, nil
}

func (m *memJobs) FindByID(_ context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *memJobs) newestFirst(keep func(models.Job) bool, limit int) []models.Job {
	out := []models.Job{}
	for i := len(m.ids) - 1; i >= 0; i-- {
		j := m.byID[m.ids[i]]
		if keep(j) {
			out = append(out, j)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (m *memJobs) FindByStatus(_ context.Context, status models.JobStatus, limit int) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(j models.Job) bool { return j.Status == status }, limit), nil
}

func (m *memJobs) FindByOrganization(_ context.Context, orgID string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(j models.Job) bool { return j.OrganizationID == orgID }, 0), nil
}

func (m *memJobs) FindOpenBefore(_ context.Context, cutoff string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(j models.Job) bool {
		return j.Status == models.JobOpen && j.Date != "" && j.Date < cutoff
	}, 0), nil
}

func (m *memJobs) CountByOrganization(_ context.Context, orgID string, status models.JobStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.byID {
		if j.OrganizationID == orgID && j.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memJobs) Replace(_ context.Context, id string, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	cp.ID = id
	m.byID[id] = cp
	return nil
}

func (m *memJobs) SetStatus(_ context.Context, id string, status models.JobStatus, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.byID[id]
	j.Status = status
	j.UpdatedAt = updatedAt
	m.byID[id] = j
	return nil
}

type memApps struct {
	mu      sync.Mutex
	next    int
	byID    map[string]models.Application
	failUpd bool
}

func newMemApps() *memApps { return &memApps{byID: map[string]models.Application{}} }

func (m *memApps) Create(_ context.Context, a *models.Application) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if a.VolunteerID != "" && a.JobID != "" && existing.VolunteerID == a.VolunteerID && existing.JobID == a.JobID {
			return "", repository.ErrDuplicate
		}
	}
	m.next++
	id := "a" + strconv.Itoa(m.next)
	cp := *a
	cp.ID = id
	m.byID[id] = cp
	return id, nil
}

func (m *memApps) FindByID(_ context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memApps) filter(keep func(models.Application) bool, limit int) []models.Application {
	out := []models.Application{}
	for _, a := range m.byID {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedAt == out[j].AppliedAt {
			return out[i].ID > out[j].ID
		}
		return out[i].AppliedAt > out[j].AppliedAt
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memApps) FindByVolunteerAndJob(_ context.Context, volunteerID, jobID string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.VolunteerID == volunteerID && a.JobID == jobID {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memApps) FindByJob(_ context.Context, jobID string, status models.ApplicationStatus) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(a models.Application) bool {
		return a.JobID == jobID && (status == "" || a.Status == status)
	}, 0), nil
}

func (m *memApps) FindByVolunteer(_ context.Context, volunteerID string, limit int) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(a models.Application) bool { return a.VolunteerID == volunteerID }, limit), nil
}

func (m *memApps) FindByOrganization(_ context.Context, orgID string, limit int) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(a models.Application) bool { return a.OrganizationID == orgID }, limit), nil
}

func (m *memApps) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpd {
		return errStore
	}
	a, ok := m.byID[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			a.Status = models.ApplicationStatus(v.(string))
		case "organizationResponse":
			a.OrganizationResponse = v.(string)
		case "reviewedBy":
			a.ReviewedBy = v.(string)
		case "reviewedAt":
			a.ReviewedAt = v.(string)
		case "hoursCompleted":
			a.HoursCompleted = v.(float64)
		case "completedAt":
			a.CompletedAt = v.(string)
		case "updatedAt":
			a.UpdatedAt = v.(string)
		}
	}
	m.byID[id] = a
	return nil
}

type memResumes struct {
	mu         sync.Mutex
	next       int
	byID       map[string]models.Resume
	blobs      map[string][]byte
	failPut    bool
	failCreate bool
}

func newMemResumes() *memResumes {
	return &memResumes{byID: map[string]models.Resume{}, blobs: map[string][]byte{}}
}

func (m *memResumes) Create(_ context.Context, r *models.Resume) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return "", errStore
	}
	m.next++
	id := "r" + strconv.Itoa(m.next)
	cp := *r
	cp.ID = id
	m.byID[id] = cp
	return id, nil
}

func (m *memResumes) FindByID(_ context.Context, id string) (*models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memResumes) HasBlob(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func (m *memResumes) DeleteBlob(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memResumes) PutBlob(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errStore
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memResumes) GetBlob(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

type memRevocations map[string]time.Time

func (m memRevocations) Revoke(_ context.Context, id string, exp time.Time) error {
	m[id] = exp
	return nil
}

func (m memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

type recordingNotifier struct {
	sent []mail.DecisionEmail
	err  error
}

func (n *recordingNotifier) SendDecision(_ context.Context, e mail.DecisionEmail) error {
	n.sent = append(n.sent, e)
	return n.err
}

type recordingPublisher struct {
	types []string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.types = append(p.types, eventType)
	return p.err
}

var fixedNow = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
