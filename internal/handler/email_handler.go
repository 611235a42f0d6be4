package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/middleware"
)

// EmailSender is the part of mail.Mailer the email endpoints need.
type EmailSender interface {
	SendDecision(ctx context.Context, e mail.DecisionEmail) error
	SendTest(ctx context.Context) (string, error)
}

type EmailHandler struct {
	mailer EmailSender
}

func NewEmailHandler(mailer EmailSender) *EmailHandler {
	return &EmailHandler{mailer: mailer}
}

// Send delivers a decision email described by the request body.
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req mail.DecisionEmail
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.mailer.SendDecision(r.Context(), req)
	var provider *mail.ProviderError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Email sent successfully",
		})
	case errors.Is(err, mail.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, mail.ErrAPIKeyMissing):
		writeError(w, http.StatusInternalServerError, "SendGrid API key not configured")
	case errors.Is(err, mail.ErrFromMissing):
		writeError(w, http.StatusInternalServerError, "From email not configured")
	case errors.As(err, &provider):
		logSendFailure(r, "email.send", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to send email",
			"details": provider.Details(),
		})
	default:
		logSendFailure(r, "email.send", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to send email",
			"details": err.Error(),
		})
	}
}

// Test sends a fixed message to the sender address. The outcome is always
// reported with status 200.
func (h *EmailHandler) Test(w http.ResponseWriter, r *http.Request) {
	to, err := h.mailer.SendTest(r.Context())
	var provider *mail.ProviderError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Test email sent successfully",
			"to":      to,
		})
	case errors.Is(err, mail.ErrAPIKeyMissing):
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "SENDGRID_API_KEY is missing"})
	case errors.Is(err, mail.ErrFromMissing):
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "FROM_EMAIL is missing"})
	default:
		logSendFailure(r, "email.test", err)
		var details any = err.Error()
		if errors.As(err, &provider) {
			details = provider.Details()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "Failed to send test email",
			"details": details,
		})
	}
}

func logSendFailure(r *http.Request, operation string, err error) {
	slog.ErrorContext(r.Context(), "email delivery failed",
		"operation", operation,
		"outcome", "failure",
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
}
