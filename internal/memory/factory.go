package memory

import (
	"context"
	"strings"

	"github.com/antoniostano/minaai/internal/clock"
)

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string, clk clock.Clock) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(clk), nil
	}
	return NewPostgresStore(ctx, databaseURL, clk)
}
