// Package ingest feeds collected events through the dedup/upsert engine.
// Each source runs as one pipeline step; a failing step is reported and the
// run continues with the next step.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Status is the per-unit outcome reported for a pipeline step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Result is one step's status line.
type Result struct {
	Step   string
	Status Status
	Detail string
}

// Step is one unit of a pipeline run. Run returns a human-readable detail
// line on success.
type Step interface {
	Name() string
	Run(ctx context.Context) (detail string, err error)
}

// Pipeline runs steps in order, isolating failures per step.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// NewPipeline builds a pipeline over the given steps.
func NewPipeline(logger *slog.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{steps: steps, logger: logger}
}

// Run executes every step. An erroring step is recorded and the run moves
// on; only context cancellation stops the pipeline early.
func (p *Pipeline) Run(ctx context.Context) []Result {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)
	log.Info("pipeline start", "steps", len(p.steps))

	results := make([]Result, 0, len(p.steps))
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Step: step.Name(), Status: StatusSkipped, Detail: "cancelled"})
			continue
		}
		start := time.Now()
		detail, err := step.Run(ctx)
		if err != nil {
			log.Error("step failed", "step", step.Name(), "error", err)
			results = append(results, Result{Step: step.Name(), Status: StatusError, Detail: err.Error()})
			continue
		}
		log.Info("step done", "step", step.Name(), "detail", detail, "elapsed", time.Since(start))
		results = append(results, Result{Step: step.Name(), Status: StatusOK, Detail: detail})
	}
	return results
}
