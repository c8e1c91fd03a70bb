package server

import (
	"errors"

	"mindposter/internal/models"
	"mindposter/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Approve handles GET /approve/:token
func (s *Server) Approve(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token := c.Params("token")

	result, err := s.lifecycle.Approve(ctx, token)
	if err != nil {
		return s.respondActionError(c, err)
	}

	return renderPage(c, fiber.StatusOK, "result.html", actionPage(result))
}

// Reject handles GET /reject/:token
func (s *Server) Reject(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token := c.Params("token")

	result, err := s.lifecycle.Reject(ctx, token, "Rejected via email")
	if err != nil {
		return s.respondActionError(c, err)
	}

	return renderPage(c, fiber.StatusOK, "result.html", actionPage(result))
}

// Preview handles GET /preview/:token
func (s *Server) Preview(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token := c.Params("token")

	post, err := s.lifecycle.Resolve(ctx, token)
	if err != nil {
		return s.respondActionError(c, err)
	}

	label, color := statusBadge(post.Status)
	return renderPage(c, fiber.StatusOK, "preview.html", fiber.Map{
		"Post":        post,
		"StatusLabel": label,
		"StatusColor": color,
		"CreatedAt":   post.CreatedAt.Format("2006-01-02 15:04 MST"),
		"Token":       post.ApprovalToken,
		// Action links only while the post still awaits review.
		"ShowActions": post.Status == models.StatusPendingApproval,
	})
}

// respondActionError maps service errors on the token path to responses.
func (s *Server) respondActionError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
		return models.RespondWithError(c, fiber.StatusNotFound, appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// actionPage maps an action outcome to the result page content.
func actionPage(result *service.ActionResult) resultPage {
	switch result.Outcome {
	case service.OutcomePublished:
		return resultPage{
			Title:   "Post Published!",
			Message: "The post has been approved and published to Instagram.",
			Detail:  "Theme: " + result.Post.Theme + " / Instagram Post ID: " + result.Post.InstagramPostID,
			Color:   colorSuccess,
		}
	case service.OutcomePublishFailed:
		return resultPage{
			Title:   "Publishing Failed",
			Message: "The post was approved but publishing failed. Please try again later or publish manually.",
			Detail:  result.Detail,
			Color:   colorDanger,
		}
	case service.OutcomeRejected:
		return resultPage{
			Title:   "Post Rejected",
			Message: "The post has been rejected. A new post will be generated in the next cycle.",
			Detail:  "Rejected theme: " + result.Post.Theme,
			Color:   colorDanger,
		}
	case service.OutcomeAlreadyPublished:
		return resultPage{
			Title:   "Already Published",
			Message: result.Detail,
			Color:   colorSuccess,
		}
	case service.OutcomeAlreadyRejected:
		return resultPage{
			Title:   "Previously Rejected",
			Message: result.Detail + " Generate a new one if needed.",
			Color:   colorWarn,
		}
	case service.OutcomeAlreadyFailed:
		return resultPage{
			Title:   "Publishing Previously Failed",
			Message: result.Detail,
			Color:   colorDanger,
		}
	case service.OutcomeCannotReject:
		return resultPage{
			Title:   "Cannot Reject",
			Message: result.Detail,
			Color:   colorWarn,
		}
	default: // in progress
		return resultPage{
			Title:   "Approval In Progress",
			Message: result.Detail,
			Color:   colorWarn,
		}
	}
}
