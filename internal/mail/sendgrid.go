package mail

import (
	"context"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendEndpoint = "/v3/mail/send"

// SendGridSender delivers messages through the SendGrid v3 API.
type SendGridSender struct {
	request rest.Request
}

func NewSendGridSender(apiKey string) *SendGridSender {
	return NewSendGridSenderWithHost(apiKey, "")
}

// NewSendGridSenderWithHost targets another API host, such as a regional
// endpoint. An empty host means api.sendgrid.com.
func NewSendGridSenderWithHost(apiKey, host string) *SendGridSender {
	req := sendgrid.GetRequest(apiKey, sendEndpoint, host)
	req.Method = rest.Post
	return &SendGridSender{request: req}
}

// Send is safe for concurrent use. Each call builds its own client because
// the SDK client stores the request body on itself.
func (s *SendGridSender) Send(ctx context.Context, msg *sgmail.SGMailV3) error {
	client := &sendgrid.Client{Request: s.request}
	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return &ProviderError{Err: err}
	}
	if resp.StatusCode >= 400 {
		return &ProviderError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}
