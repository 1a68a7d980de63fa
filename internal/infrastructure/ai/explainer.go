package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.3

	// Claim texts and invention descriptions are truncated before prompting
	// so a pathological document cannot blow the context window.
	maxClaimPromptLen     = 2000
	maxInventionPromptLen = 1500
)

// Explainer generates free-text overlap assessments and structured
// prior-art analyses from an OpenAI-compatible chat endpoint.
type Explainer struct {
	model       llms.Model
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      logging.Logger
}

var _ engine.ExplanationService = (*Explainer)(nil)

// NewExplainer builds an Explainer from configuration.
func NewExplainer(cfg config.ExplanationConfig, log logging.Logger) (*Explainer, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.CodeInvalidParam, "explanation: base_url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.CodeInvalidParam, "explanation: model is required")
	}
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExplanationUnavailable, "building explanation client")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Explainer{
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     cfg.Timeout,
		logger:      log.Named("explainer"),
	}, nil
}

// ExplainComparison produces a short technical assessment of the overlap
// between one matched claim pair.
func (x *Explainer) ExplainComparison(ctx context.Context, req engine.ExplainRequest) (string, error) {
	prompt := comparisonPrompt(req)
	content, err := x.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return "", errors.New(errors.ErrCodeExplanationUnavailable, "model returned an empty assessment")
	}
	return text, nil
}

// AnalyzePriorArt produces a structured freedom-to-operate analysis of an
// invention against its blocking patents.
func (x *Explainer) AnalyzePriorArt(ctx context.Context, req engine.PriorArtRequest) (*engine.Analysis, error) {
	prompt := priorArtPrompt(req)
	content, err := x.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	analysis, err := parseAnalysis(content)
	if err != nil {
		x.logger.Warn("unparseable prior-art analysis", logging.Err(err))
		return nil, err
	}
	return analysis, nil
}

func (x *Explainer) generate(ctx context.Context, prompt string) (string, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	resp, err := x.model.GenerateContent(ctx,
		[]llms.MessageContent{
			{
				Role:  schema.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(prompt)},
			},
		},
		llms.WithTemperature(x.temperature),
		llms.WithMaxTokens(x.maxTokens),
	)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExplanationUnavailable, "explanation request failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeExplanationUnavailable, "model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func comparisonPrompt(req engine.ExplainRequest) string {
	var b strings.Builder
	b.WriteString("You are a patent attorney assistant. Assess the technical overlap between the two claims below in two or three sentences. Name the shared elements and the material differences. Do not restate the claims.\n\n")
	fmt.Fprintf(&b, "SOURCE CLAIM:\n%s\n\n", truncate(req.SourceClaim, maxClaimPromptLen))
	fmt.Fprintf(&b, "TARGET CLAIM:\n%s\n\n", truncate(req.TargetClaim, maxClaimPromptLen))
	fmt.Fprintf(&b, "Similarity score: %.2f\nRisk level: %s\n", req.Similarity, req.RiskLevel)
	if len(req.KeyElements) > 0 {
		fmt.Fprintf(&b, "Key elements of the source claim: %s\n", strings.Join(req.KeyElements, ", "))
	}
	return b.String()
}

func priorArtPrompt(req engine.PriorArtRequest) string {
	var b strings.Builder
	b.WriteString("You are a patent attorney assistant. Analyze the freedom to operate for this invention against the prior art below.\n\n")
	fmt.Fprintf(&b, "INVENTION DESCRIPTION:\n%s\n\n", truncate(req.InventionDescription, maxInventionPromptLen))
	b.WriteString("POTENTIALLY BLOCKING PRIOR ART:\n")
	for _, s := range req.BlockingSummaries {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	b.WriteString(`Respond in JSON format:
{
    "summary": "one-paragraph assessment of the overall situation",
    "freedomToOperate": "likely|uncertain|unlikely",
    "keyRisks": ["risk 1", "risk 2"],
    "designAroundSuggestions": ["suggestion 1", "suggestion 2"],
    "recommendation": "brief recommendation for next steps"
}

Consider how close the blocking claims come to the invention and what modifications could design around them. Be practical and specific.`)
	return b.String()
}

// parseAnalysis extracts the structured analysis from a model reply,
// tolerating markdown code fences around the JSON body.
func parseAnalysis(content string) (*engine.Analysis, error) {
	text := stripFences(content)
	var analysis engine.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExplanationUnavailable, "decoding analysis reply")
	}
	if analysis.Summary == "" {
		return nil, errors.New(errors.ErrCodeExplanationUnavailable, "analysis reply carries no summary")
	}
	return &analysis, nil
}

func stripFences(s string) string {
	text := strings.TrimSpace(s)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
