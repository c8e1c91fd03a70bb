package mailer

import (
	"bytes"
	"testing"

	"mindposter/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalTemplateRenders(t *testing.T) {
	data := emailData{
		Theme:       "Everyday gratitude",
		Hook:        "You noticed it, didn't you?",
		Caption:     "You noticed it, didn't you?\n\nThe small stuff counts.",
		Hashtags:    "#MindfulTeens #Gratitude",
		ImagePrompt: "soft morning light on a kitchen table",
		AltText:     "A quiet morning table",
		CTA:         "Save this for tomorrow morning.",
		ApproveURL:  "https://posts.example.com/approve/tok-123",
		RejectURL:   "https://posts.example.com/reject/tok-123",
		PreviewURL:  "https://posts.example.com/preview/tok-123",
	}

	var body bytes.Buffer
	require.NoError(t, approvalTmpl.Execute(&body, data))

	html := body.String()
	assert.Contains(t, html, "Everyday gratitude")
	assert.Contains(t, html, "#MindfulTeens #Gratitude")
	assert.Contains(t, html, "https://posts.example.com/approve/tok-123")
	assert.Contains(t, html, "https://posts.example.com/reject/tok-123")
	assert.Contains(t, html, "https://posts.example.com/preview/tok-123")
}

func TestApprovalTemplateEscapesContent(t *testing.T) {
	data := emailData{
		Theme:      "Test",
		Hook:       `<script>alert("x")</script>`,
		Caption:    "c",
		Hashtags:   "#x",
		ApproveURL: "https://posts.example.com/approve/tok",
		RejectURL:  "https://posts.example.com/reject/tok",
		PreviewURL: "https://posts.example.com/preview/tok",
	}

	var body bytes.Buffer
	require.NoError(t, approvalTmpl.Execute(&body, data))
	assert.NotContains(t, body.String(), "<script>")
}

func TestNewTrimsBaseURL(t *testing.T) {
	m := New(&config.Config{
		BaseURL:       "https://posts.example.com/",
		FromEmail:     "noreply@example.com",
		ReviewerEmail: "reviewer@example.com",
	})
	assert.Equal(t, "https://posts.example.com", m.baseURL)
	assert.Equal(t, "reviewer@example.com", m.to)
}
