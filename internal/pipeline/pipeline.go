package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the visit as
// filled by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides Name() and State() for logging and state tracking
type Step interface {
	// Do executes the pipeline step.
	// A returned error ends the visit; the caller classifies it.
	Do(ctx context.Context, visit *model.Visit) error

	// Name returns the step's name for logging purposes.
	Name() string

	// State returns the visit state entered while the step runs.
	State() model.VisitState
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and stops at the first error.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps handle their own timeouts. A cancelled crawl stops
// between stages, never in the middle of a frontier merge.
//
// Execute does not move the visit to StateErrored; the caller decides the
// error kind.
func (p *Pipeline) Execute(ctx context.Context, visit *model.Visit) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"url", visit.URL,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		visit.State = step.State()
		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", visit.URL,
			"state", visit.State.String(),
		)

		if err := step.Do(ctx, visit); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"url", visit.URL,
				"error", err,
			)
			return err
		}
		visit.Steps = append(visit.Steps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
