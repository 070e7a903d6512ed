// Package coach is the AI business coach: prompt building, the Gemini text
// generator and the persisted coach conversation.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-2.0-flash-exp"

// Fixed replies. The generator never returns an error; every failure becomes one of these.
const (
	FallbackReply = "I don't have access to the AI service in this environment. Try setting GEMINI_API_KEY for better answers. Meanwhile, here's a starter tip:\n\n" +
		"• Define your top 3 products and one sentence value proposition.\n" +
		"• Post one photo + one customer quote each week."
	EmptyReply = "Sorry, I couldn’t generate a response right now."
	ErrorReply = "Error contacting AI service. Please try again later."
)

// Reply outcomes, used as the metric label.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomePartners = "partners"
)

// Generator turns a prompt into reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
}

// GeminiConfig configures GeminiGenerator. BaseURL is only set to point at a test server.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiGenerator calls generateContent once per prompt, without retries.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a generator. Without an API key no client is created
// and every call answers FallbackReply.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	g := &GeminiGenerator{model: model}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return g, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return g, nil
}

// Configured reports whether a credential was supplied.
func (g *GeminiGenerator) Configured() bool {
	return g != nil && g.client != nil
}

// Model returns the model name requests are sent to.
func (g *GeminiGenerator) Model() string { return g.model }

// Generate sends prompt as a single user turn and returns the first candidate's first part.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) string {
	span, ctx := observability.NewSpan(ctx, "coach.generate", attribute.String("coach.model", g.model))
	defer span.End()

	reply, outcome := g.generate(ctx, prompt, span)
	span.AddAttributes(attribute.String("coach.outcome", outcome))
	observability.CoachRequests.WithLabelValues(outcome).Inc()
	return reply
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string, span *observability.Span) (string, string) {
	if !g.Configured() {
		return FallbackReply, OutcomeFallback
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		// The service answered, just without text.
		span.SetError(err)
		middleware.Logger.WarnContext(ctx, "Coach generation rejected",
			slog.String("model", g.model),
			slog.Int("code", apiErr.Code),
			slog.String("status", apiErr.Status),
		)
		return EmptyReply, OutcomeEmpty
	}
	if err != nil {
		span.SetError(err)
		middleware.Logger.ErrorContext(ctx, "Coach generation failed",
			slog.String("model", g.model),
			slog.String("error", err.Error()),
		)
		return ErrorReply, OutcomeError
	}

	if text := firstPartText(resp); text != "" {
		return text, OutcomeOK
	}
	return EmptyReply, OutcomeEmpty
}

func firstPartText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return ""
	}
	return c.Content.Parts[0].Text
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) string

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) string { return f(ctx, prompt) }
