package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mindposter/internal/config"
	"mindposter/internal/middleware"
	"mindposter/internal/observability"
)

// Stage identifies where in the publish protocol a failure occurred.
type Stage string

const (
	StageCreate      Stage = "create"
	StagePollTimeout Stage = "poll_timeout"
	StagePollError   Stage = "poll_error"
	StageCommit      Stage = "commit"
)

// PublishError reports a publish protocol failure with the stage that broke.
// The upstream detail is retained for operator diagnosis.
type PublishError struct {
	Stage Stage
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("instagram publish failed at %s: %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Gateway is the two-call remote publish API with its out-of-band readiness poll.
type Gateway interface {
	CreateContainer(ctx context.Context, caption, imageURL string) (string, error)
	ContainerStatus(ctx context.Context, containerID string) (string, error)
	Commit(ctx context.Context, containerID string) (string, error)
}

// Publisher drives the two-phase publish protocol against a Gateway. It holds
// no state and persists nothing; the lifecycle service records the outcome.
type Publisher struct {
	gw           Gateway
	pollInterval time.Duration
	maxAttempts  int
}

// NewPublisher creates a Publisher with poll policy from the configuration.
func NewPublisher(gw Gateway, cfg *config.Config) *Publisher {
	return &Publisher{
		gw:           gw,
		pollInterval: time.Duration(cfg.PublishPollSeconds) * time.Second,
		maxAttempts:  cfg.PublishPollAttempts,
	}
}

// Publish runs create container, poll until ready, commit. On success it
// returns the permanent Instagram post id; on failure it returns a
// *PublishError carrying the failed stage. Each phase failure is final: the
// protocol is never retried here.
func (p *Publisher) Publish(ctx context.Context, caption, hashtags, mediaRef string) (string, error) {
	fullCaption := caption
	if hashtags != "" {
		fullCaption = caption + "\n\n" + hashtags
	}

	containerID, err := p.gw.CreateContainer(ctx, fullCaption, mediaRef)
	if err != nil {
		return "", p.fail(StageCreate, err)
	}
	middleware.Logger.InfoContext(ctx, "media container created",
		slog.String("container_id", containerID))

	if err := p.waitForContainer(ctx, containerID); err != nil {
		return "", err
	}

	postID, err := p.gw.Commit(ctx, containerID)
	if err != nil {
		return "", p.fail(StageCommit, err)
	}

	observability.PublishAttemptsTotal.WithLabelValues("success", "").Inc()
	middleware.Logger.InfoContext(ctx, "published to instagram",
		slog.String("instagram_post_id", postID))
	return postID, nil
}

// waitForContainer polls the container status until FINISHED, at fixed
// intervals up to the attempt bound. ERROR aborts immediately; exhausting the
// bound is a distinct timeout failure.
func (p *Publisher) waitForContainer(ctx context.Context, containerID string) error {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.gw.ContainerStatus(ctx, containerID)
		if err != nil {
			return p.fail(StagePollError, err)
		}

		switch status {
		case statusFinished:
			return nil
		case statusError:
			return p.fail(StagePollError, fmt.Errorf("container %s reported processing error", containerID))
		}

		middleware.Logger.InfoContext(ctx, "waiting for media processing",
			slog.String("container_id", containerID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.maxAttempts),
		)

		if attempt < p.maxAttempts {
			select {
			case <-ctx.Done():
				return p.fail(StagePollError, ctx.Err())
			case <-time.After(p.pollInterval):
			}
		}
	}
	return p.fail(StagePollTimeout, fmt.Errorf("container %s not ready after %d attempts", containerID, p.maxAttempts))
}

func (p *Publisher) fail(stage Stage, err error) *PublishError {
	observability.PublishAttemptsTotal.WithLabelValues("failure", string(stage)).Inc()
	return &PublishError{Stage: stage, Err: err}
}
