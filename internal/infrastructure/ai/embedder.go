// Package ai implements the embedding and explanation collaborators on top
// of OpenAI-compatible endpoints via langchaingo. Any conforming server
// works, including a local Ollama instance.
package ai

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const defaultEmbeddingDim = 768

// Embedder produces fixed-dimension text embeddings from an
// OpenAI-compatible embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	dim      int
	timeout  time.Duration
	logger   logging.Logger
}

var _ engine.EmbeddingService = (*Embedder)(nil)

// NewEmbedder builds an Embedder from configuration.
func NewEmbedder(cfg config.EmbeddingConfig, log logging.Logger) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.CodeInvalidParam, "embedding: base_url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.CodeInvalidParam, "embedding: model is required")
	}
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible servers reject empty tokens but accept
		// any non-empty placeholder.
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingUnavailable, "building embedding client")
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingUnavailable, "building embedder")
	}

	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultEmbeddingDim
	}
	return &Embedder{
		embedder: emb,
		dim:      dim,
		timeout:  cfg.Timeout,
		logger:   log.Named("embedder"),
	}, nil
}

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingUnavailable, "embedding request failed")
	}
	if len(vecs) != len(texts) {
		return nil, errors.Newf(errors.ErrCodeEmbeddingUnavailable,
			"embedding endpoint returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != e.dim {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
				"embedding %d has dimension %d, expected %d", i, len(v), e.dim)
		}
	}
	return vecs, nil
}

// Dimension reports the configured embedding width.
func (e *Embedder) Dimension() int { return e.dim }
