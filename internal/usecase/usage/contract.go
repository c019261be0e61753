package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
)

// Store persists hardware usage counters.
type Store interface {
	Add(ctx context.Context, collection string, u hardware.Usage, now time.Time) error
	Load(ctx context.Context, collection string, period domusage.Period, now time.Time) (hardware.Usage, error)
}
