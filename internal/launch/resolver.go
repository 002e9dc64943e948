package launch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/decode"
	"github.com/abramin/launchargs/internal/handle"
	"github.com/abramin/launchargs/internal/model"
)

// ErrResolutionUnavailable indicates the resolver produced no arguments.
var ErrResolutionUnavailable = errors.New("launch arguments unavailable")

// Resolver turns a request into runner arguments. Implementations may call
// out to an analysis service.
type Resolver interface {
	Resolve(ctx context.Context, req *model.Request) (*model.Response, error)
}

// Preloader warms a source cache for the compilation units of a batch.
type Preloader interface {
	Preload(ctx context.Context, scopes []decode.Scope) error
}

// LocalResolver resolves requests in process with a Decoder.
type LocalResolver struct {
	decoder   *decode.Decoder
	runner    RunnerOptions
	preloader Preloader
	logger    *zap.Logger
}

// LocalOption configures a LocalResolver.
type LocalOption func(*LocalResolver)

// WithRunnerOptions sets the port and extra runner args.
func WithRunnerOptions(opts RunnerOptions) LocalOption {
	return func(r *LocalResolver) {
		r.runner = opts
	}
}

// WithPreloader parses every unit named by a batch before decoding it.
func WithPreloader(p Preloader) LocalOption {
	return func(r *LocalResolver) {
		r.preloader = p
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) LocalOption {
	return func(r *LocalResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewLocalResolver creates a resolver around dec. A nil dec uses a decoder
// with only the well-known JDK types.
func NewLocalResolver(dec *decode.Decoder, opts ...LocalOption) *LocalResolver {
	if dec == nil {
		dec = decode.New()
	}
	r := &LocalResolver{decoder: dec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve decodes every test name in order and assembles the arguments
// without tag filters. All malformed handles are reported together.
func (r *LocalResolver) Resolve(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if _, err := SelectionFlag(req.TestKind, req.TestLevel); err != nil {
		return nil, err
	}
	if r.preloader != nil {
		if err := r.preloader.Preload(ctx, scopes(req.TestNames)); err != nil {
			r.logger.Warn("preloading sources failed", zap.Error(err))
		}
	}

	descriptors := make([]string, 0, len(req.TestNames))
	var errs *multierror.Error
	for _, name := range req.TestNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := r.decoder.DecodeSelector(req.TestLevel, name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		descriptors = append(descriptors, d.String())
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("resolving %d test names: %w", len(req.TestNames), err)
	}

	flags, err := RunnerFlags(req.TestKind, r.runner)
	if err != nil {
		return nil, err
	}
	mainClass, err := MainClass(req.TestKind)
	if err != nil {
		return nil, err
	}
	args, err := Assemble(flags, nil, Selection{Kind: req.TestKind, Level: req.TestLevel, Descriptors: descriptors})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved launch arguments",
		zap.String("project", req.ProjectName),
		zap.Stringer("kind", req.TestKind),
		zap.Stringer("level", req.TestLevel),
		zap.Int("selectors", len(descriptors)))

	return &model.Response{Body: &model.LaunchArguments{
		ProjectName:      req.ProjectName,
		MainClass:        mainClass,
		ProgramArguments: args,
	}}, nil
}

// scopes lists the compilation units named by handles. Handles that do not
// scan are skipped; decoding reports them.
func scopes(names []string) []decode.Scope {
	var out []decode.Scope
	seen := make(map[string]bool)
	for _, name := range names {
		h, err := handle.Parse(name)
		if err != nil || h.Unit == "" {
			continue
		}
		key := h.SourceRoot + "|" + h.Package + "|" + h.Unit
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, decode.Scope{
			Project:    h.Project,
			SourceRoot: h.SourceRoot,
			Package:    h.Package,
			Unit:       h.Unit,
		})
	}
	return out
}
