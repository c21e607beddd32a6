package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/modules/overview"
)

// SnapshotJob periodically runs the position pipeline and logs a
// portfolio summary. It keeps price data warm and leaves a trace of
// portfolio value over time in the logs.
type SnapshotJob struct {
	service *overview.Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewSnapshotJob creates a snapshot job
func NewSnapshotJob(service *overview.Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		service: service,
		timeout: 2 * time.Minute,
		log:     log.With().Str("job", "overview_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "overview_snapshot"
}

// Run executes one snapshot
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	positions, err := j.service.Positions(ctx)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}

	costs, err := positions.Floats("totalPrice")
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	values, err := positions.Floats("totalLastPrice")
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}

	j.log.Info().
		Int("positions", positions.Len()).
		Float64("total_cost", sumFinite(costs)).
		Float64("total_value", sumFinite(values)).
		Msg("Portfolio snapshot")

	return nil
}

// sumFinite totals a column, skipping sentinel values left by failed
// price lookups.
func sumFinite(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			total += v
		}
	}
	return total
}
