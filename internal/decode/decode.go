// Package decode turns element handles into the fully-qualified selectors a
// Java test runner accepts on its command line, for example
//
//	junit5.ParameterizedAnnotationTest:equal(int,int)
//
// Decoding is pure: a Decoder holds only its resolvers and is safe for
// concurrent use.
package decode

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/handle"
	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/signature"
)

// Descriptor is a decoded selector.
type Descriptor struct {
	Level   model.TestLevel
	Package string
	// Type is the declaring type, nested names joined by '$'.
	Type   string
	Member string
	// Params are the erased, fully-qualified parameter types.
	Params []string
}

// QualifiedType returns the package-qualified declaring type.
func (d Descriptor) QualifiedType() string {
	return qualify(d.Package, d.Type)
}

// String renders the descriptor for the runner command line.
func (d Descriptor) String() string {
	switch d.Level {
	case model.LevelPackage:
		return d.Package
	case model.LevelClass:
		return d.QualifiedType()
	case model.LevelMethod:
		return d.QualifiedType() + ":" + d.Member + "(" + strings.Join(d.Params, ",") + ")"
	case model.LevelProject:
		return ""
	}
	return ""
}

// Decoder resolves handles with a chain of type resolvers that always ends
// with WellKnown.
type Decoder struct {
	resolvers Chain
	logger    *zap.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithTypeResolver adds a resolver consulted before the well-known JDK table.
func WithTypeResolver(r TypeResolver) Option {
	return func(d *Decoder) {
		d.resolvers = append(d.resolvers, r)
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.resolvers = append(d.resolvers, WellKnown)
	return d
}

var defaultDecoder = New()

// Decode decodes a method handle with the default decoder.
func Decode(raw string) (Descriptor, error) {
	return defaultDecoder.Decode(raw)
}

// Decode decodes a method-level handle.
func (d *Decoder) Decode(raw string) (Descriptor, error) {
	return d.DecodeSelector(model.LevelMethod, raw)
}

// DecodeSelector decodes raw at the requested level. A deeper handle is
// truncated to that level; a shallower one is malformed for it.
func (d *Decoder) DecodeSelector(level model.TestLevel, raw string) (Descriptor, error) {
	h, err := handle.Parse(raw)
	if err != nil {
		return Descriptor{}, &Error{Handle: raw, Err: fmt.Errorf("%w: %v", ErrMalformedHandle, err)}
	}

	switch level {
	case model.LevelProject:
		return Descriptor{}, &Error{Handle: raw, Err: fmt.Errorf("%w: %s", ErrUnsupportedLevel, level)}
	case model.LevelPackage:
		if !h.HasPackage || h.Package == "" {
			return Descriptor{}, missing(raw, "package")
		}
		return Descriptor{Level: level, Package: h.Package}, nil
	case model.LevelClass:
		if h.Unit == "" {
			return Descriptor{}, missing(raw, "compilation unit")
		}
		scope := d.scope(h)
		return Descriptor{Level: level, Package: scope.Package, Type: h.TypeName()}, nil
	case model.LevelMethod:
		return d.decodeMethod(h)
	}
	return Descriptor{}, &Error{Handle: raw, Err: fmt.Errorf("%w: %s", ErrUnsupportedLevel, level)}
}

func (d *Decoder) decodeMethod(h *handle.Handle) (Descriptor, error) {
	switch {
	case !h.HasPackage:
		return Descriptor{}, missing(h.Raw, "package")
	case h.Unit == "":
		return Descriptor{}, missing(h.Raw, "compilation unit")
	case len(h.Types) == 0:
		return Descriptor{}, missing(h.Raw, "declaring type")
	case !h.HasMember:
		return Descriptor{}, missing(h.Raw, "member name")
	}

	scope := d.scope(h)
	q := signature.QualifierFunc(func(name string) string {
		return d.qualifyReference(scope, name)
	})

	params := make([]string, 0, len(h.Params))
	for i, sig := range h.Params {
		t, err := signature.Parse(sig)
		if err != nil {
			return Descriptor{}, &Error{
				Handle:  h.Raw,
				Segment: sig,
				Err:     fmt.Errorf("%w: parameter %d: %v", ErrMalformedSignature, i+1, err),
			}
		}
		params = append(params, t.Format(q))
	}

	return Descriptor{
		Level:   model.LevelMethod,
		Package: scope.Package,
		Type:    h.TypeName(),
		Member:  h.Member,
		Params:  params,
	}, nil
}

// scope builds the resolution scope, filling in the package of default
// package handles.
func (d *Decoder) scope(h *handle.Handle) Scope {
	scope := Scope{
		Project:    h.Project,
		SourceRoot: h.SourceRoot,
		Package:    h.Package,
		Unit:       h.Unit,
		Types:      h.Types,
		Member:     h.Member,
	}
	if scope.Package == "" {
		if pkg, ok := d.resolvers.ResolvePackage(scope); ok {
			scope.Package = pkg
		} else if h.Project != "" {
			scope.Package = strings.ToLower(h.Project)
			d.logger.Debug("package unresolved, using project name",
				zap.String("handle", h.Raw),
				zap.String("package", scope.Package))
		}
	}
	scope.Qualified = qualify(scope.Package, h.TypeName())
	return scope
}

// qualifyReference expands a source-form reference name. Dotted names whose
// first segment is a type resolve that segment and nest the rest with '$'.
func (d *Decoder) qualifyReference(scope Scope, name string) string {
	if isPackageQualified(name) {
		return name
	}
	head, rest, nested := strings.Cut(name, ".")

	fq, ok := d.resolvers.ResolveType(scope, head)
	if !ok {
		fq = scope.Qualified + "$" + head
		d.logger.Debug("type unresolved, assuming nested type",
			zap.String("type", head),
			zap.String("qualified", fq))
	}
	if nested {
		fq += "$" + strings.ReplaceAll(rest, ".", "$")
	}
	return fq
}

func missing(raw, segment string) error {
	return &Error{Handle: raw, Err: fmt.Errorf("%w: missing %s", ErrMalformedHandle, segment)}
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	if name == "" {
		return pkg
	}
	return pkg + "." + name
}
