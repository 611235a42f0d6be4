package models

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationDeclined  ApplicationStatus = "declined"
	ApplicationCompleted ApplicationStatus = "completed"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationDeclined, ApplicationCompleted:
		return true
	}
	return false
}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:  {ApplicationApproved, ApplicationDeclined},
	ApplicationApproved: {ApplicationCompleted},
}

// CanTransition reports whether an application may move from s to next.
// Declined and completed are terminal.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Reference struct {
	Name        string `json:"name,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Application links one volunteer to one job.
type Application struct {
	ID                   string            `json:"_id,omitempty"`
	JobID                string            `json:"jobId"`
	JobTitle             string            `json:"jobTitle,omitempty"`
	OrganizationID       string            `json:"organizationId"`
	VolunteerID          string            `json:"volunteerId"`
	VolunteerName        string            `json:"volunteerName"`
	VolunteerEmail       string            `json:"volunteerEmail"`
	VolunteerPhone       string            `json:"volunteerPhone,omitempty"`
	VolunteerSchool      string            `json:"volunteerSchool,omitempty"`
	VolunteerGrade       int               `json:"volunteerGrade,omitempty"`
	Status               ApplicationStatus `json:"status"`
	CoverLetter          string            `json:"coverLetter,omitempty"`
	Availability         string            `json:"availability,omitempty"`
	Skills               string            `json:"skills,omitempty"`
	ResumeURL            string            `json:"resumeUrl,omitempty"`
	References           Reference         `json:"references"`
	OrganizationResponse string            `json:"organizationResponse,omitempty"`
	ReviewedBy           string            `json:"reviewedBy,omitempty"`
	AppliedAt            string            `json:"appliedAt"`
	ReviewedAt           string            `json:"reviewedAt,omitempty"`
	HoursCompleted       float64           `json:"hoursCompleted,omitempty"`
	CompletedAt          string            `json:"completedAt,omitempty"`
	UpdatedAt            string            `json:"updatedAt,omitempty"`
}
