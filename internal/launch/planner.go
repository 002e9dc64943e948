package launch

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/tags"
)

// Recorder stores the outcome of a resolution. args is nil when err is set.
type Recorder interface {
	Record(ctx context.Context, req *model.Request, args *model.LaunchArguments, err error) error
}

// Planner produces the final runner arguments: it resolves the selection,
// then splices the compiled tag filters in ahead of it.
type Planner struct {
	resolver Resolver
	tags     []string
	recorder Recorder
	logger   *zap.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithTags sets the tag filter expressions.
func WithTags(exprs []string) PlannerOption {
	return func(p *Planner) {
		p.tags = exprs
	}
}

// WithRecorder records every plan outcome.
func WithRecorder(rec Recorder) PlannerOption {
	return func(p *Planner) {
		p.recorder = rec
	}
}

// WithPlannerLogger sets the planner logger.
func WithPlannerLogger(l *zap.Logger) PlannerOption {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlanner creates a planner over r.
func NewPlanner(r Resolver, opts ...PlannerOption) *Planner {
	p := &Planner{resolver: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan resolves req and returns the complete launch arguments.
func (p *Planner) Plan(ctx context.Context, req *model.Request) (*model.LaunchArguments, error) {
	args, err := p.plan(ctx, req)
	if p.recorder != nil {
		if recErr := p.recorder.Record(ctx, req, args, err); recErr != nil {
			p.logger.Warn("recording resolution failed", zap.Error(recErr))
		}
	}
	return args, err
}

func (p *Planner) plan(ctx context.Context, req *model.Request) (*model.LaunchArguments, error) {
	resp, err := p.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Body == nil {
		return nil, ErrResolutionUnavailable
	}

	out := *resp.Body
	out.ProgramArguments = slices.Clone(resp.Body.ProgramArguments)
	if tagArgs := tags.Compile(req.TestKind, p.tags); len(tagArgs) > 0 {
		width := SelectionWidth(req.TestKind, req.TestLevel, len(req.TestNames))
		out.ProgramArguments = SpliceFilters(out.ProgramArguments, tagArgs, width)
		p.logger.Debug("applied tag filters", zap.Strings("tags", p.tags))
	}
	return &out, nil
}
