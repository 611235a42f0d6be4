package service

import (
	"context"
	"time"

	"github.com/slmes-creator/job-posting/internal/models"
)

const (
	dashboardOpenJobs    = 6
	dashboardRecentItems = 5
)

type DashboardService struct {
	jobs  JobStore
	apps  ApplicationStore
	users UserStore
	now   func() time.Time
}

func NewDashboardService(jobs JobStore, apps ApplicationStore, users UserStore) *DashboardService {
	return &DashboardService{jobs: jobs, apps: apps, users: users, now: time.Now}
}

type VolunteerStats struct {
	TotalApplications  int     `json:"totalApplications"`
	ActiveApplications int     `json:"activeApplications"`
	CompletedJobs      int     `json:"completedJobs"`
	TotalHours         float64 `json:"totalHours"`
	HoursThisMonth     float64 `json:"hoursThisMonth"`
}

type VolunteerDashboard struct {
	Stats              VolunteerStats       `json:"stats"`
	RecentJobs         []models.Job         `json:"recentJobs"`
	RecentApplications []models.Application `json:"recentApplications"`
}

func sameMonth(stamp string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return false
	}
	t, now = t.UTC(), now.UTC()
	return t.Year() == now.Year() && t.Month() == now.Month()
}

func (s *DashboardService) Volunteer(ctx context.Context, volunteerID string) (*VolunteerDashboard, error) {
	volunteer, err := s.users.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer == nil {
		return nil, notFound("volunteer not found")
	}
	apps, err := s.apps.FindByVolunteer(ctx, volunteerID, 0)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.FindByStatus(ctx, models.JobOpen, dashboardOpenJobs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &VolunteerDashboard{
		Stats:      VolunteerStats{TotalApplications: len(apps), TotalHours: volunteer.TotalHours},
		RecentJobs: jobs,
	}
	for _, a := range apps {
		switch a.Status {
		case models.ApplicationPending, models.ApplicationApproved:
			d.Stats.ActiveApplications++
		case models.ApplicationCompleted:
			d.Stats.CompletedJobs++
			if sameMonth(a.CompletedAt, now) {
				d.Stats.HoursThisMonth += a.HoursCompleted
			}
		}
	}
	d.RecentApplications = apps[:min(len(apps), dashboardRecentItems)]
	return d, nil
}

type OrganizationStats struct {
	OpenJobs          int     `json:"openJobs"`
	TotalApplications int     `json:"totalApplications"`
	PendingReviews    int     `json:"pendingReviews"`
	HoursProvided     float64 `json:"hoursProvided"`
}

type OrganizationDashboard struct {
	Stats              OrganizationStats    `json:"stats"`
	RecentJobs         []models.Job         `json:"recentJobs"`
	RecentApplications []models.Application `json:"recentApplications"`
}

func (s *DashboardService) Organization(ctx context.Context, orgID string) (*OrganizationDashboard, error) {
	jobs, err := s.jobs.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	apps, err := s.apps.FindByOrganization(ctx, orgID, 0)
	if err != nil {
		return nil, err
	}

	open, err := s.jobs.CountByOrganization(ctx, orgID, models.JobOpen)
	if err != nil {
		return nil, err
	}

	d := &OrganizationDashboard{Stats: OrganizationStats{OpenJobs: open, TotalApplications: len(apps)}}
	for _, a := range apps {
		switch a.Status {
		case models.ApplicationPending:
			d.Stats.PendingReviews++
		case models.ApplicationCompleted:
			d.Stats.HoursProvided += a.HoursCompleted
		}
	}
	d.RecentJobs = jobs[:min(len(jobs), dashboardRecentItems)]
	d.RecentApplications = apps[:min(len(apps), dashboardRecentItems)]
	return d, nil
}
