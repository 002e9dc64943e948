package javasrc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abramin/launchargs/internal/decode"
	"github.com/abramin/launchargs/internal/signature"
)

// Index resolves type names against the Java sources of one project. It
// implements decode.TypeResolver and decode.PackageResolver and is safe for
// concurrent use.
type Index struct {
	dir      string
	roots    []string
	excluded func(dir string) bool
	logger   *zap.Logger

	mu    sync.Mutex
	units map[string]*Unit // by absolute path
	found map[string]string // lookup key to path, "" for a miss
}

// Option configures an Index.
type Option func(*Index)

// WithSourceRoots adds project-relative source roots, tried after the root
// recorded in a handle.
func WithSourceRoots(roots ...string) Option {
	return func(ix *Index) {
		ix.roots = append(ix.roots, roots...)
	}
}

// WithExcludeFunc sets the filter for directories skipped when searching
// for a unit. The default skips DefaultExcludeDirs.
func WithExcludeFunc(excluded func(dir string) bool) Option {
	return func(ix *Index) {
		if excluded != nil {
			ix.excluded = excluded
		}
	}
}

// WithLogger sets the index logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// NewIndex creates an index over the project rooted at dir.
func NewIndex(dir string, opts ...Option) *Index {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	ix := &Index{
		dir:      absDir,
		excluded: IsDefaultExcluded,
		logger:   zap.NewNop(),
		units:    make(map[string]*Unit),
		found:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// ResolvePackage returns the package declared by the scope's unit.
func (ix *Index) ResolvePackage(scope decode.Scope) (string, bool) {
	u := ix.unit(context.Background(), scope)
	if u == nil || u.Package == "" {
		return "", false
	}
	return u.Package, true
}

// ResolveType resolves name in the order Java scoping would find it: the
// method's type variables, the declaring type chain from the innermost type
// outward, the unit's other top-level types, single-type imports, the unit's
// package, then on-demand imports. Type variables resolve to their erasure.
func (ix *Index) ResolveType(scope decode.Scope, name string) (string, bool) {
	u := ix.unit(context.Background(), scope)
	if u == nil {
		return "", false
	}
	return ix.resolve(u, scope, name, 0)
}

// maxBoundDepth stops erasure of type variables bounded by each other.
const maxBoundDepth = 8

func (ix *Index) resolve(u *Unit, scope decode.Scope, name string, depth int) (string, bool) {
	chain := declChain(u, scope.Types)
	if scope.Member != "" && len(chain) > 0 {
		if tp, ok := findTypeParam(chain[len(chain)-1].MethodTypeParams[scope.Member], name); ok {
			return ix.erasure(u, scope, tp, depth), true
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		decl := chain[i]
		prefix := qualify(u.Package, chainName(chain[:i+1]))
		if decl.Name == name {
			return prefix, true
		}
		for _, nested := range decl.Nested {
			if nested.Name == name {
				return prefix + "$" + name, true
			}
		}
		if tp, ok := findTypeParam(decl.TypeParams, name); ok {
			return ix.erasure(u, scope, tp, depth), true
		}
	}

	for _, decl := range u.Types {
		if decl.Name == name {
			return qualify(u.Package, name), true
		}
	}

	if fq, ok := u.Imports[name]; ok {
		return fq, true
	}

	if ix.exists(filepath.Join(filepath.Dir(u.Path), name+".java")) {
		return qualify(u.Package, name), true
	}

	for _, pkg := range u.OnDemand {
		if decode.WellKnownIn(pkg, name) {
			return pkg + "." + name, true
		}
		for _, root := range ix.searchRoots(scope) {
			if ix.exists(filepath.Join(ix.dir, root, packagePath(pkg), name+".java")) {
				return pkg + "." + name, true
			}
		}
	}
	return "", false
}

// erasure returns the runtime type of a type variable: its first bound, or
// java.lang.Object when it is unbounded or the bound cannot be found.
func (ix *Index) erasure(u *Unit, scope decode.Scope, tp TypeParam, depth int) string {
	if tp.Bound == "" || depth >= maxBoundDepth {
		return signature.ObjectType
	}
	if first := tp.Bound[0]; first >= 'a' && first <= 'z' && strings.Contains(tp.Bound, ".") {
		return tp.Bound
	}

	head, rest, nested := strings.Cut(tp.Bound, ".")
	fq, ok := ix.resolve(u, scope, head, depth+1)
	if !ok {
		fq, ok = decode.LookupWellKnown(head)
	}
	if !ok {
		ix.logger.Debug("type variable bound unresolved, erasing to Object",
			zap.String("variable", tp.Name),
			zap.String("bound", tp.Bound))
		return signature.ObjectType
	}
	if nested {
		fq += "$" + strings.ReplaceAll(rest, ".", "$")
	}
	return fq
}

func findTypeParam(params []TypeParam, name string) (TypeParam, bool) {
	for _, tp := range params {
		if tp.Name == name {
			return tp, true
		}
	}
	return TypeParam{}, false
}

// Preload parses the units behind scopes concurrently so later resolution
// hits the cache.
func (ix *Index) Preload(ctx context.Context, scopes []decode.Scope) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, scope := range scopes {
		g.Go(func() error {
			_, err := ix.load(ctx, scope)
			return err
		})
	}
	return g.Wait()
}

// unit returns the parsed unit for scope, or nil if it cannot be found or
// parsed.
func (ix *Index) unit(ctx context.Context, scope decode.Scope) *Unit {
	u, err := ix.load(ctx, scope)
	if err != nil {
		ix.logger.Debug("compilation unit unavailable",
			zap.String("unit", scope.Unit),
			zap.Error(err))
		return nil
	}
	return u
}

func (ix *Index) load(ctx context.Context, scope decode.Scope) (*Unit, error) {
	if scope.Unit == "" {
		return nil, nil
	}
	path := ix.locate(scope)
	if path == "" {
		return nil, nil
	}

	ix.mu.Lock()
	u, cached := ix.units[path]
	ix.mu.Unlock()
	if cached {
		return u, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	u, err = ParseUnit(ctx, path, source)
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	ix.units[path] = u
	ix.mu.Unlock()
	ix.logger.Debug("indexed compilation unit",
		zap.String("path", path),
		zap.String("package", u.Package),
		zap.Int("types", len(u.Types)))
	return u, nil
}

// locate finds the file of scope's unit: first under the known source roots,
// then by searching the project tree.
func (ix *Index) locate(scope decode.Scope) string {
	key := scope.SourceRoot + "|" + scope.Package + "|" + scope.Unit
	ix.mu.Lock()
	path, ok := ix.found[key]
	ix.mu.Unlock()
	if ok {
		return path
	}

	rel := filepath.Join(packagePath(scope.Package), scope.Unit)
	for _, root := range ix.searchRoots(scope) {
		candidate := filepath.Join(ix.dir, root, rel)
		if ix.exists(candidate) {
			path = candidate
			break
		}
	}
	if path == "" {
		matches, err := FindFiles(ix.dir, scope.Unit, ix.excluded)
		if err != nil {
			ix.logger.Debug("source search failed", zap.Error(err))
		}
		want := packagePath(scope.Package)
		for _, m := range matches {
			if want == "" || strings.HasSuffix(filepath.Dir(m), string(filepath.Separator)+want) {
				path = m
				break
			}
		}
	}

	ix.mu.Lock()
	ix.found[key] = path
	ix.mu.Unlock()
	return path
}

func (ix *Index) searchRoots(scope decode.Scope) []string {
	roots := make([]string, 0, len(ix.roots)+1)
	if scope.SourceRoot != "" {
		roots = append(roots, filepath.FromSlash(scope.SourceRoot))
	}
	for _, r := range ix.roots {
		roots = append(roots, filepath.FromSlash(r))
	}
	return roots
}

func (ix *Index) exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// declChain maps the handle's type chain onto declarations. Names may carry
// '$'-joined nesting themselves.
func declChain(u *Unit, types []string) []*TypeDecl {
	var names []string
	for _, t := range types {
		names = append(names, strings.Split(t, "$")...)
	}

	var chain []*TypeDecl
	candidates := u.Types
	for _, name := range names {
		var next *TypeDecl
		for _, d := range candidates {
			if d.Name == name {
				next = d
				break
			}
		}
		if next == nil {
			break
		}
		chain = append(chain, next)
		candidates = next.Nested
	}
	return chain
}

func chainName(chain []*TypeDecl) string {
	names := make([]string, len(chain))
	for i, d := range chain {
		names[i] = d.Name
	}
	return strings.Join(names, "$")
}

func packagePath(pkg string) string {
	if pkg == "" {
		return ""
	}
	return filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
