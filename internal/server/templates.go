package server

import (
	"bytes"
	"embed"
	"html/template"

	"mindposter/internal/models"

	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// resultPage is the payload for the approve/reject outcome page.
type resultPage struct {
	Title   string
	Message string
	Detail  string
	Color   string
}

// Page tone colors, matching the status badge palette.
const (
	colorSuccess = "#2e7d32"
	colorInfo    = "#1565c0"
	colorWarn    = "#f57c00"
	colorDanger  = "#c62828"
	colorMuted   = "#999"
)

// statusBadge returns the label and color for a post status badge.
func statusBadge(status models.PostStatus) (string, string) {
	switch status {
	case models.StatusPendingApproval:
		return "Pending Review", colorWarn
	case models.StatusApproved:
		return "Approved", colorSuccess
	case models.StatusPublished:
		return "Published", colorInfo
	case models.StatusRejected:
		return "Rejected", colorDanger
	case models.StatusFailed:
		return "Failed", colorDanger
	default:
		return "Draft", colorMuted
	}
}

// renderPage executes the named template and writes it as an HTML response.
func renderPage(c *fiber.Ctx, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
