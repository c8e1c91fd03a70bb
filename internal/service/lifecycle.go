// Package service contains the business logic for the post lifecycle and the
// generation pipeline.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mindposter/internal/middleware"
	"mindposter/internal/models"
	"mindposter/internal/observability"
	"mindposter/internal/repository"

	"gorm.io/gorm"
)

// PostPublisher runs the remote publish protocol for an approved post.
type PostPublisher interface {
	Publish(ctx context.Context, caption, hashtags, mediaRef string) (string, error)
}

// CreatePostInput carries the content fields for a new post.
type CreatePostInput struct {
	ThemeID     string
	Theme       string
	Hook        string
	Caption     string
	Hashtags    string
	AltText     string
	ImagePrompt string
	CTA         string
	Metadata    string
}

// Outcome describes the result of a token-bearing action. Replays against
// posts already past the targeted state get a descriptive outcome rather than
// an error, because approval links are legitimately clicked more than once.
type Outcome string

const (
	OutcomePublished        Outcome = "published"
	OutcomePublishFailed    Outcome = "publish_failed"
	OutcomeRejected         Outcome = "rejected"
	OutcomeAlreadyPublished Outcome = "already_published"
	OutcomeAlreadyRejected  Outcome = "already_rejected"
	OutcomeAlreadyFailed    Outcome = "already_failed"
	OutcomeInProgress       Outcome = "in_progress"
	OutcomeCannotReject     Outcome = "cannot_reject"
)

// ActionResult is the outcome of an approve or reject action, with the post as
// it stands afterwards.
type ActionResult struct {
	Post    *models.Post
	Outcome Outcome
	Detail  string
}

// LifecycleService owns the post state machine: token issuance, transition
// guards, and transition application. All mutation goes through its guarded
// compare-and-set transitions.
type LifecycleService struct {
	repo      repository.PostRepository
	publisher PostPublisher
	mediaURL  string
}

// NewLifecycleService creates the lifecycle service. mediaURL is the publicly
// reachable image attached to every publish.
func NewLifecycleService(repo repository.PostRepository, publisher PostPublisher, mediaURL string) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		publisher: publisher,
		mediaURL:  mediaURL,
	}
}

// CreatePost validates the content fields, mints the approval token, and
// persists the post in pending_approval.
func (s *LifecycleService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.ThemeID == "" || in.Theme == "" {
		return nil, models.NewValidationError("Theme is required")
	}
	if in.Hook == "" || in.Caption == "" || in.Hashtags == "" {
		return nil, models.NewValidationError("Hook, caption and hashtags are required")
	}

	token, err := mintToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	metadata := in.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	post := &models.Post{
		ThemeID:       in.ThemeID,
		Theme:         in.Theme,
		Hook:          in.Hook,
		Caption:       in.Caption,
		Hashtags:      in.Hashtags,
		AltText:       in.AltText,
		ImagePrompt:   in.ImagePrompt,
		CTA:           in.CTA,
		Status:        models.StatusPendingApproval,
		ApprovalToken: token,
		Metadata:      metadata,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.RecordTransition(string(models.StatusDraft), string(models.StatusPendingApproval))
	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.String("theme_id", post.ThemeID),
	)
	return post, nil
}

// Resolve looks up a post by its approval token. The token is the sole
// authorization mechanism.
func (s *LifecycleService) Resolve(ctx context.Context, token string) (*models.Post, error) {
	post, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

// Approve applies the approve transition and, on first application, drives the
// publish protocol inline. Replays return a descriptive outcome without
// touching the gateway: the protocol executes at most once per post.
func (s *LifecycleService) Approve(ctx context.Context, token string) (*ActionResult, error) {
	post, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if post.Status != models.StatusPendingApproval {
		return s.replayResult(post), nil
	}

	now := time.Now().UTC()
	ok, err := s.repo.CompareAndSetStatus(ctx, post.ID,
		models.StatusPendingApproval, models.StatusApproved,
		repository.StatusChange{ApprovedAt: &now})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		// Lost the race against a concurrent click; the winner owns the
		// publish protocol.
		return &ActionResult{
			Post:    post,
			Outcome: OutcomeInProgress,
			Detail:  "This post is already being processed.",
		}, nil
	}
	observability.RecordTransition(string(models.StatusPendingApproval), string(models.StatusApproved))
	post.Status = models.StatusApproved
	post.ApprovedAt = &now

	igPostID, pubErr := s.publisher.Publish(ctx, post.Caption, post.Hashtags, s.mediaURL)
	if pubErr != nil {
		middleware.Logger.ErrorContext(ctx, "publish failed",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", pubErr.Error()),
		)
		if _, casErr := s.repo.CompareAndSetStatus(ctx, post.ID,
			models.StatusApproved, models.StatusFailed,
			repository.StatusChange{}); casErr != nil {
			return nil, models.NewInternalError(casErr)
		}
		observability.RecordTransition(string(models.StatusApproved), string(models.StatusFailed))
		post.Status = models.StatusFailed
		return &ActionResult{
			Post:    post,
			Outcome: OutcomePublishFailed,
			Detail:  pubErr.Error(),
		}, nil
	}

	publishedAt := time.Now().UTC()
	if _, casErr := s.repo.CompareAndSetStatus(ctx, post.ID,
		models.StatusApproved, models.StatusPublished,
		repository.StatusChange{PublishedAt: &publishedAt, InstagramPostID: igPostID}); casErr != nil {
		// The post IS live on Instagram at this point; surface the record
		// store failure rather than pretending the publish failed.
		return nil, models.NewInternalError(
			fmt.Errorf("post published as %s but status update failed: %w", igPostID, casErr))
	}
	observability.RecordTransition(string(models.StatusApproved), string(models.StatusPublished))
	post.Status = models.StatusPublished
	post.PublishedAt = &publishedAt
	post.InstagramPostID = igPostID

	return &ActionResult{Post: post, Outcome: OutcomePublished}, nil
}

// Reject applies the reject transition. Refused once the post is approved or
// beyond; replays against closed posts are descriptive no-ops.
func (s *LifecycleService) Reject(ctx context.Context, token, reason string) (*ActionResult, error) {
	post, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if post.Status != models.StatusPendingApproval {
		return s.rejectReplayResult(post), nil
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, post.ID,
		models.StatusPendingApproval, models.StatusRejected,
		repository.StatusChange{RejectionReason: reason})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		// Status moved under us; re-read and report what it became.
		refreshed, rerr := s.repo.GetByID(ctx, post.ID)
		if rerr != nil {
			return nil, models.NewInternalError(rerr)
		}
		return s.rejectReplayResult(refreshed), nil
	}
	observability.RecordTransition(string(models.StatusPendingApproval), string(models.StatusRejected))
	post.Status = models.StatusRejected
	post.RejectionReason = reason

	return &ActionResult{Post: post, Outcome: OutcomeRejected}, nil
}

// replayResult maps a post that is past pending_approval to the no-op outcome
// an action replay should report.
func (s *LifecycleService) replayResult(post *models.Post) *ActionResult {
	res := &ActionResult{Post: post}
	switch post.Status {
	case models.StatusPublished:
		res.Outcome = OutcomeAlreadyPublished
		res.Detail = "This post has already been published to Instagram."
	case models.StatusRejected:
		res.Outcome = OutcomeAlreadyRejected
		res.Detail = "This post was already rejected."
	case models.StatusFailed:
		res.Outcome = OutcomeAlreadyFailed
		res.Detail = "Publishing already failed for this post. Trigger a new generation or publish manually."
	default: // approved
		res.Outcome = OutcomeInProgress
		res.Detail = "This post is already being processed."
	}
	return res
}

// rejectReplayResult maps a post that is past pending_approval to the outcome
// a reject attempt should report. Rejection is refused once the approve path
// has started: an approval is never silently overwritten.
func (s *LifecycleService) rejectReplayResult(post *models.Post) *ActionResult {
	res := &ActionResult{Post: post}
	switch post.Status {
	case models.StatusRejected:
		res.Outcome = OutcomeAlreadyRejected
		res.Detail = "This post was already rejected."
	default: // approved, published or failed
		res.Outcome = OutcomeCannotReject
		res.Detail = "This post has already been approved and cannot be rejected."
	}
	return res
}

// mintToken generates a cryptographically random, URL-safe approval token.
func mintToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate approval token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
