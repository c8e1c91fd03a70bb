package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"mindposter/internal/generator"
	"mindposter/internal/middleware"
	"mindposter/internal/models"
	"mindposter/internal/observability"
	"mindposter/internal/repository"
)

// DraftProducer generates structured content fields for a theme.
type DraftProducer interface {
	Produce(ctx context.Context, theme generator.Theme) (*generator.Draft, *generator.Usage, error)
}

// Notifier delivers the approval message for a created post.
type Notifier interface {
	SendApproval(ctx context.Context, post *models.Post) (string, error)
}

// Pipeline is the generation path shared by the daily scheduler and the manual
// /generate endpoint: pick a theme, produce a draft, create the post, email
// the reviewer.
type Pipeline struct {
	themes    []generator.Theme
	repo      repository.PostRepository
	producer  DraftProducer
	notifier  Notifier
	lifecycle *LifecycleService
	exclusion time.Duration
}

// NewPipeline creates the generation pipeline. exclusionDays is the window in
// which a theme is considered recently used.
func NewPipeline(
	themes []generator.Theme,
	repo repository.PostRepository,
	producer DraftProducer,
	notifier Notifier,
	lifecycle *LifecycleService,
	exclusionDays int,
) *Pipeline {
	return &Pipeline{
		themes:    themes,
		repo:      repo,
		producer:  producer,
		notifier:  notifier,
		lifecycle: lifecycle,
		exclusion: time.Duration(exclusionDays) * 24 * time.Hour,
	}
}

// SelectTheme picks a theme uniformly at random among those not used within
// the exclusion window. When every theme was recently used the exclusion is
// dropped for this run so selection never blocks.
func (p *Pipeline) SelectTheme(ctx context.Context) (generator.Theme, error) {
	cutoff := time.Now().UTC().Add(-p.exclusion)
	usedIDs, err := p.repo.UsedThemeIDs(ctx, cutoff)
	if err != nil {
		return generator.Theme{}, models.NewInternalError(err)
	}

	used := make(map[string]bool, len(usedIDs))
	for _, id := range usedIDs {
		used[id] = true
	}

	available := make([]generator.Theme, 0, len(p.themes))
	for _, t := range p.themes {
		if !used[t.ID] {
			available = append(available, t)
		}
	}
	if len(available) == 0 {
		available = p.themes
	}

	return available[rand.Intn(len(available))], nil
}

// Run executes one full generation cycle and returns the created post. A
// generation failure aborts the run before anything is persisted; a delivery
// failure is logged but leaves the created post pending, reachable via the
// dashboard.
func (p *Pipeline) Run(ctx context.Context) (*models.Post, error) {
	theme, err := p.SelectTheme(ctx)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues("theme_selection_failed").Inc()
		return nil, err
	}

	draft, usage, err := p.producer.Produce(ctx, theme)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues("generation_failed").Inc()
		return nil, models.NewGenerationError(err)
	}

	metadata := "{}"
	if usage != nil {
		if raw, merr := json.Marshal(usage); merr == nil {
			metadata = string(raw)
		}
		middleware.Logger.InfoContext(ctx, "draft generated",
			slog.String("theme_id", theme.ID),
			slog.Int64("input_tokens", usage.InputTokens),
			slog.Int64("output_tokens", usage.OutputTokens),
			slog.Float64("cost_usd", usage.CostUSD),
		)
	}

	post, err := p.lifecycle.CreatePost(ctx, CreatePostInput{
		ThemeID:     theme.ID,
		Theme:       theme.Theme,
		Hook:        draft.Hook,
		Caption:     draft.Caption,
		Hashtags:    draft.Hashtags,
		AltText:     draft.AltText,
		ImagePrompt: draft.ImagePrompt,
		CTA:         draft.CTA,
		Metadata:    metadata,
	})
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues("create_failed").Inc()
		return nil, err
	}

	if msgID, sendErr := p.notifier.SendApproval(ctx, post); sendErr != nil {
		// Non-fatal: the post stays pending and remains reachable via the
		// dashboard even without the email.
		observability.EmailDeliveriesTotal.WithLabelValues("failure").Inc()
		middleware.Logger.ErrorContext(ctx, "approval email delivery failed",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", sendErr.Error()),
		)
	} else {
		observability.EmailDeliveriesTotal.WithLabelValues("success").Inc()
		middleware.Logger.InfoContext(ctx, "approval email sent",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("message_id", msgID),
		)
	}

	observability.PipelineRunsTotal.WithLabelValues("success").Inc()
	return post, nil
}
