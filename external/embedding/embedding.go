// Package embedding wraps a go-openai-compatible embedding endpoint behind
// the EmbeddingClient seam of spec.md §6, grounded on the teacher's
// ai.EmbeddingService (ai/embedding.go).
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Dimensions is the fixed embedding width spec.md §3/§4.3 assumes for
// vector columns and similarity search.
const Dimensions = 384

// Client is the EmbeddingClient seam of spec.md §6.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config configures the OpenAI-compatible embedding provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type client struct {
	api   *openai.Client
	model string
}

// New builds a go-openai-backed Client.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: api key required")
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	return &client{api: openai.NewClientWithConfig(conf), model: cfg.Model}, nil
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}
