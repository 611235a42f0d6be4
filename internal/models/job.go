package models

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobOpen      JobStatus = "open"
	JobClosed    JobStatus = "closed"
	JobCompleted JobStatus = "completed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobDraft, JobOpen, JobClosed, JobCompleted:
		return true
	}
	return false
}

// Job is a volunteer opportunity posted by an organization.
// CurrentVolunteers is display data; nothing keeps it in step with approvals.
type Job struct {
	ID                string    `json:"_id,omitempty"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	OrganizationID    string    `json:"organizationId"`
	OrganizationName  string    `json:"organizationName"`
	Location          string    `json:"location"`
	IsRemote          bool      `json:"isRemote"`
	Date              string    `json:"date,omitempty"`
	StartTime         string    `json:"startTime,omitempty"`
	EndTime           string    `json:"endTime,omitempty"`
	Duration          string    `json:"duration,omitempty"`
	HoursOffered      float64   `json:"hoursOffered"`
	MaxVolunteers     int       `json:"maxVolunteers"`
	CurrentVolunteers int       `json:"currentVolunteers"`
	Category          string    `json:"category,omitempty"`
	Requirements      []string  `json:"requirements,omitempty"`
	ContactEmail      string    `json:"contactEmail,omitempty"`
	ContactPhone      string    `json:"contactPhone,omitempty"`
	Status            JobStatus `json:"status"`
	CreatedAt         string    `json:"createdAt"`
	UpdatedAt         string    `json:"updatedAt,omitempty"`
}

// ExpiresAt is when an open job lapses: EndTime on the job's day when set,
// the end of the day for a job with only a date, otherwise its start.
// ok is false when Date is not RFC 3339.
func (j Job) ExpiresAt() (at time.Time, ok bool) {
	start, err := time.Parse(time.RFC3339, j.Date)
	if err != nil {
		return time.Time{}, false
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if end, err := time.Parse("15:04", strings.TrimSpace(j.EndTime)); err == nil {
		at = day.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute)
		if at.Before(start) {
			at = at.Add(24 * time.Hour)
		}
		return at, true
	}
	if start.Equal(day) && strings.TrimSpace(j.StartTime) == "" {
		return day.Add(24 * time.Hour), true
	}
	return start, true
}

// JobCategories are the categories offered by the posting form.
var JobCategories = []string{
	"Environment",
	"Education",
	"Healthcare",
	"Community Service",
	"Animal Welfare",
	"Disaster Relief",
	"Youth Programs",
	"Senior Services",
	"Food & Hunger",
	"Other",
}
