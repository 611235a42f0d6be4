package models

const (
	RoleVolunteer    = "volunteer"
	RoleOrganization = "organization"
)

// ValidRole reports whether r is one of the two account roles.
func ValidRole(r string) bool {
	return r == RoleVolunteer || r == RoleOrganization
}

// User is a stored account. Only the fields of its role are populated.
type User struct {
	ID           string `json:"_id,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role"`
	DisplayName  string `json:"displayName"`
	CreatedAt    string `json:"createdAt"`

	// volunteer
	FullName      string   `json:"fullName,omitempty"`
	School        string   `json:"school,omitempty"`
	Grade         int      `json:"grade,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	TotalHours    float64  `json:"totalHours,omitempty"`
	AppliedJobs   []string `json:"appliedJobs,omitempty"`
	CompletedJobs []string `json:"completedJobs,omitempty"`

	// organization
	OrganizationName string `json:"organizationName,omitempty"`
	Description      string `json:"description,omitempty"`
	Website          string `json:"website,omitempty"`
	Address          string `json:"address,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty"`
}

// UserResponse is the public view of a User; it never carries the hash.
type UserResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	DisplayName      string   `json:"displayName"`
	CreatedAt        string   `json:"createdAt"`
	FullName         string   `json:"fullName,omitempty"`
	School           string   `json:"school,omitempty"`
	Grade            int      `json:"grade,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	TotalHours       float64  `json:"totalHours"`
	AppliedJobs      []string `json:"appliedJobs,omitempty"`
	CompletedJobs    []string `json:"completedJobs,omitempty"`
	OrganizationName string   `json:"organizationName,omitempty"`
	Description      string   `json:"description,omitempty"`
	Website          string   `json:"website,omitempty"`
	Address          string   `json:"address,omitempty"`
	ContactPhone     string   `json:"contactPhone,omitempty"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Role:             u.Role,
		DisplayName:      u.DisplayName,
		CreatedAt:        u.CreatedAt,
		FullName:         u.FullName,
		School:           u.School,
		Grade:            u.Grade,
		Phone:            u.Phone,
		TotalHours:       u.TotalHours,
		AppliedJobs:      u.AppliedJobs,
		CompletedJobs:    u.CompletedJobs,
		OrganizationName: u.OrganizationName,
		Description:      u.Description,
		Website:          u.Website,
		Address:          u.Address,
		ContactPhone:     u.ContactPhone,
	}
}
