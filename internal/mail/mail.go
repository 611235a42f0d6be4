// Package mail renders and delivers volunteer application notifications.
package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DecisionApproved = "approved"
	DecisionDeclined = "declined"

	testSenderName = "Test Organization"
	testSubject    = "SendGrid Test Email"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrAPIKeyMissing = errors.New("sendgrid api key not configured")
	ErrFromMissing   = errors.New("from email not configured")
)

// ProviderError is returned when the email provider rejects a message or
// cannot be reached.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mail provider: %v", e.Err)
	}
	return fmt.Sprintf("mail provider: status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Details returns the provider's error list when the body carries one,
// otherwise a plain message.
func (e *ProviderError) Details() any {
	if e.Err != nil {
		return e.Err.Error()
	}
	var body struct {
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && len(body.Errors) > 0 {
		return body.Errors
	}
	if e.Body != "" {
		return e.Body
	}
	return "Unknown SendGrid error"
}

// DecisionEmail is the payload of an approve/decline notification.
type DecisionEmail struct {
	To               string `json:"to"`
	VolunteerName    string `json:"volunteerName"`
	JobTitle         string `json:"jobTitle"`
	Decision         string `json:"decision"`
	Message          string `json:"message"`
	OrganizationName string `json:"organizationName"`
}

// Validate requires every field to be non-empty.
func (e DecisionEmail) Validate() error {
	for _, v := range []string{e.To, e.VolunteerName, e.JobTitle, e.Decision, e.Message, e.OrganizationName} {
		if v == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// Approved reports whether the approval template applies. Any other
// decision value gets the update template.
func (e DecisionEmail) Approved() bool {
	return e.Decision == DecisionApproved
}

func (e DecisionEmail) Subject() string {
	if e.Approved() {
		return "Volunteer Application Approved - " + e.JobTitle
	}
	return "Volunteer Application Update - " + e.JobTitle
}

var whitespace = regexp.MustCompile(`\s+`)

func slug(s string) string {
	return strings.ToLower(whitespace.ReplaceAllString(s, "-"))
}

// Sender delivers a fully built message.
type Sender interface {
	Send(ctx context.Context, msg *sgmail.SGMailV3) error
}

// Mailer builds notification messages and hands them to a Sender.
type Mailer struct {
	apiKey    string
	fromEmail string
	sender    Sender
	now       func() time.Time
}

func NewMailer(apiKey, fromEmail string, sender Sender) *Mailer {
	return &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		sender:    sender,
		now:       time.Now,
	}
}

// FromEmail is the verified sender address.
func (m *Mailer) FromEmail() string { return m.fromEmail }

func (m *Mailer) configured() error {
	if m.apiKey == "" {
		return ErrAPIKeyMissing
	}
	if m.fromEmail == "" {
		return ErrFromMissing
	}
	return nil
}

// SendDecision validates fields first, then configuration, then sends.
func (m *Mailer) SendDecision(ctx context.Context, e DecisionEmail) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := m.configured(); err != nil {
		return err
	}

	text, html, err := renderDecision(e)
	if err != nil {
		return fmt.Errorf("render decision email: %w", err)
	}

	category := "decline"
	if e.Approved() {
		category = "approval"
	}
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(e.OrganizationName, m.fromEmail),
		e.Subject(),
		sgmail.NewEmail(e.VolunteerName, e.To),
		text,
		html,
	)
	msg.AddCategories("volunteer-application", category)
	msg.SetCustomArg("application_type", "volunteer")
	msg.SetCustomArg("decision", e.Decision)
	msg.SetCustomArg("job_id", slug(e.JobTitle))
	msg.SetHeader("X-Priority", "3")
	msg.SetHeader("X-MSMail-Priority", "Normal")
	msg.SetHeader("Importance", "Normal")

	return m.sender.Send(ctx, msg)
}

// SendTest sends a fixed message to the sender address and returns it.
func (m *Mailer) SendTest(ctx context.Context) (string, error) {
	if err := m.configured(); err != nil {
		return "", err
	}
	stamp := m.now().UTC().Format(time.RFC3339)
	html, err := renderTest(stamp)
	if err != nil {
		return "", fmt.Errorf("render test email: %w", err)
	}
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(testSenderName, m.fromEmail),
		testSubject,
		sgmail.NewEmail("", m.fromEmail),
		"Test email sent at "+stamp,
		html,
	)
	if err := m.sender.Send(ctx, msg); err != nil {
		return "", err
	}
	return m.fromEmail, nil
}
