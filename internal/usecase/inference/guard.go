package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/logger"
)

// Guard wraps an embedder with budget enforcement and call logging.
// Transport metrics (requests, duration, tokens) are recorded by the provider.
type Guard struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   *Budget
}

// NewGuard wraps inner. budget can be nil to disable enforcement.
func NewGuard(inner domain.Embedder, provider, model string, budget *Budget) *Guard {
	return &Guard{inner: inner, provider: provider, model: model, budget: budget}
}

// Embed checks the budget, delegates to the inner embedder and records spent tokens.
func (g *Guard) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx).With(zap.String("provider", g.provider), zap.String("model", g.model))

	if g.budget != nil {
		if err := g.budget.Check(); err != nil {
			log.Warn("inference rejected by token budget", zap.Error(err))
			return domain.EmbeddingResult{}, err
		}
	}

	start := time.Now()
	res, err := g.inner.Embed(ctx, text)
	if err != nil {
		log.Error("inference failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if g.budget != nil {
		g.budget.Record(ctx, int64(res.TotalTokens))
	}
	log.Debug("inference completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck delegates to the inner embedder when it can be probed.
func (g *Guard) HealthCheck(ctx context.Context) error {
	hc, ok := g.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("inference health check: %w", err)
	}
	return nil
}
