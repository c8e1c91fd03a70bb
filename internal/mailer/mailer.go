// Package mailer sends approval emails to the reviewer via Resend.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"mindposter/internal/config"
	"mindposter/internal/models"

	"github.com/resend/resend-go/v2"
)

//go:embed templates/approval_email.html
var templateFS embed.FS

var approvalTmpl = template.Must(template.ParseFS(templateFS, "templates/approval_email.html"))

// emailData is the template payload for the approval email.
type emailData struct {
	Theme       string
	Hook        string
	Caption     string
	Hashtags    string
	ImagePrompt string
	AltText     string
	CTA         string
	ApproveURL  string
	RejectURL   string
	PreviewURL  string
}

// Mailer renders and delivers approval emails.
type Mailer struct {
	client  *resend.Client
	from    string
	to      string
	baseURL string
}

// New creates a Mailer from the application configuration.
func New(cfg *config.Config) *Mailer {
	return &Mailer{
		client:  resend.NewClient(cfg.ResendAPIKey),
		from:    cfg.FromEmail,
		to:      cfg.ReviewerEmail,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// SendApproval delivers the review email for a freshly created post. The
// capability links embed the post's approval token. Returns the provider
// message id.
func (m *Mailer) SendApproval(ctx context.Context, post *models.Post) (string, error) {
	data := emailData{
		Theme:       post.Theme,
		Hook:        post.Hook,
		Caption:     post.Caption,
		Hashtags:    post.Hashtags,
		ImagePrompt: post.ImagePrompt,
		AltText:     post.AltText,
		CTA:         post.CTA,
		ApproveURL:  fmt.Sprintf("%s/approve/%s", m.baseURL, post.ApprovalToken),
		RejectURL:   fmt.Sprintf("%s/reject/%s", m.baseURL, post.ApprovalToken),
		PreviewURL:  fmt.Sprintf("%s/preview/%s", m.baseURL, post.ApprovalToken),
	}

	var body bytes.Buffer
	if err := approvalTmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render approval email: %w", err)
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: fmt.Sprintf("New Mindful Post for Review - %s", post.Theme),
		Html:    body.String(),
	})
	if err != nil {
		return "", models.NewDeliveryError(err)
	}
	return sent.Id, nil
}
