package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mindposter/internal/config"
	"mindposter/internal/observability"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Draft holds the structured content fields produced for one post. The rest of
// the system treats every field as an opaque string.
type Draft struct {
	Hook        string `json:"hook"`
	Caption     string `json:"caption"`
	Hashtags    string `json:"hashtags"`
	AltText     string `json:"alt_text"`
	ImagePrompt string `json:"image_prompt"`
	Theme       string `json:"theme"`
	CTA         string `json:"cta"`
}

// Usage is the token and cost accounting for one generation call. It is
// persisted in the post's metadata blob for operator bookkeeping.
type Usage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CostINR      float64 `json:"cost_inr"`
	Model        string  `json:"model"`
}

// Sonnet pricing per million tokens, used for the cost estimate in metadata.
const (
	inputCostPerMTokUSD  = 3.0
	outputCostPerMTokUSD = 15.0
	usdToINR             = 85.0
)

// Generator produces drafts via the Anthropic Messages API.
type Generator struct {
	client anthropic.Client
	model  string
}

// New creates a Generator from the application configuration.
func New(cfg *config.Config) *Generator {
	return &Generator{
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:  cfg.AnthropicModel,
	}
}

// Produce generates draft content for the given theme.
func (g *Generator) Produce(ctx context.Context, theme Theme) (*Draft, *Usage, error) {
	prompt := fmt.Sprintf(generationPromptFmt, theme.Theme, theme.Context)

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 1500,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if len(msg.Content) == 0 {
		return nil, nil, fmt.Errorf("anthropic response contained no content blocks")
	}

	usage := &Usage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		Model:        g.model,
	}
	usage.CostUSD = float64(usage.InputTokens)*inputCostPerMTokUSD/1_000_000 +
		float64(usage.OutputTokens)*outputCostPerMTokUSD/1_000_000
	usage.CostINR = usage.CostUSD * usdToINR
	observability.GenerationTokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	observability.GenerationTokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))

	raw := stripCodeFences(msg.Content[0].Text)

	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, usage, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if draft.Theme == "" {
		draft.Theme = theme.Theme
	}

	return &draft, usage, nil
}

// stripCodeFences removes a wrapping markdown code fence, which the model
// sometimes adds despite the instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
