package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// Client generates text embeddings for vector search.
type Client struct {
	client openai.Client
	model  string
}

func New(client openai.Client, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = "text-embedding-3-large"
	}
	return &Client{client: client, model: model}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("generate embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// VectorLiteral renders an embedding in pgvector's text format.
func VectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
