// Package tags compiles tag filter expressions into runner flags.
//
// An expression is a tag name, optionally prefixed with '!' to exclude it.
// Expressions are passed through untrimmed and unvalidated; the runner
// reports bad tag syntax itself.
package tags

import "github.com/abramin/launchargs/internal/model"

const (
	IncludeFlag = "--include-tag"
	ExcludeFlag = "--exclude-tag"
)

// Supported reports whether the runner for kind accepts tag filters.
func Supported(kind model.TestKind) bool {
	switch kind {
	case model.KindJUnit5:
		return true
	case model.KindNone, model.KindJUnit4, model.KindTestNG:
		return false
	}
	return false
}

// Compile turns exprs into flag/value pairs, one pair per expression in
// input order. Kinds without tag support compile to nil.
func Compile(kind model.TestKind, exprs []string) []string {
	if !Supported(kind) || len(exprs) == 0 {
		return nil
	}
	args := make([]string, 0, 2*len(exprs))
	for _, expr := range exprs {
		if name, excluded := cutExclude(expr); excluded {
			args = append(args, ExcludeFlag, name)
		} else {
			args = append(args, IncludeFlag, name)
		}
	}
	return args
}

func cutExclude(expr string) (string, bool) {
	if len(expr) > 0 && expr[0] == '!' {
		return expr[1:], true
	}
	return expr, false
}
