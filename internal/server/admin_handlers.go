package server

import (
	"crypto/subtle"
	"strings"

	"mindposter/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Health handles GET /health
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "mindposter",
	})
}

// Dashboard handles GET /dashboard
func (s *Server) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()

	posts, err := s.postRepo.ListRecent(ctx, 20)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	type row struct {
		ID          uint
		StatusLabel string
		StatusColor string
		Theme       string
		Hook        string
		Date        string
		Token       string
	}
	rows := make([]row, 0, len(posts))
	for _, p := range posts {
		label, color := statusBadge(p.Status)
		rows = append(rows, row{
			ID:          p.ID,
			StatusLabel: label,
			StatusColor: color,
			Theme:       p.Theme,
			Hook:        p.Hook,
			Date:        p.CreatedAt.Format("2006-01-02"),
			Token:       p.ApprovalToken,
		})
	}

	return renderPage(c, fiber.StatusOK, "dashboard.html", fiber.Map{"Rows": rows})
}

// Generate handles POST /generate. Protected by the admin bearer secret; it
// runs the same pipeline as the daily scheduler.
func (s *Server) Generate(c *fiber.Ctx) error {
	ctx := c.UserContext()

	auth := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminSecret)) != 1 {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or missing bearer token"))
	}

	post, err := s.pipeline.Run(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post generated and approval email sent",
		"post_id": post.ID,
		"theme":   post.Theme,
		"hook":    post.Hook,
	})
}
