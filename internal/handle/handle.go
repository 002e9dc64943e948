// Package handle scans the delimited element handles produced by the Java
// language tooling into their structural segments.
//
// A method handle looks like
//
//	=junit/src\/test\/java=/optional=/true=/<junit5{FooTest.java[FooTest~equal~I~I
//
// where everything before '<' is project and classpath context, '<' starts the
// package, '{' the compilation unit, '[' the declaring type and '~' the member
// name followed by one erased signature per parameter. A backslash escapes the
// next character.
package handle

import (
	"fmt"
	"strings"

	"github.com/abramin/launchargs/internal/model"
)

const (
	escape       = '\\'
	projectDelim = '='
	rootDelim    = '/'
	packageDelim = '<'
	unitDelim    = '{'
	typeDelim    = '['
	memberDelim  = '~'
)

// Handle is a scanned element handle. All segment values are unescaped.
type Handle struct {
	Raw        string
	Project    string
	SourceRoot string

	HasPackage bool
	Package    string
	Unit       string
	// Types is the declaring type chain, outermost first.
	Types []string

	HasMember bool
	Member    string
	// Params holds the erased parameter signatures in declaration order.
	Params []string
}

// SyntaxError reports a structural problem at a byte offset of the raw handle.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Level returns the deepest element level the handle encodes.
func (h *Handle) Level() model.TestLevel {
	switch {
	case h.HasMember:
		return model.LevelMethod
	case len(h.Types) > 0 || h.Unit != "":
		return model.LevelClass
	case h.HasPackage:
		return model.LevelPackage
	default:
		return model.LevelProject
	}
}

// TypeName returns the declaring type with nested names joined by '$'. A
// handle that stops at the compilation unit names the unit's primary type.
func (h *Handle) TypeName() string {
	if len(h.Types) > 0 {
		return strings.Join(h.Types, "$")
	}
	return strings.TrimSuffix(h.Unit, ".java")
}

// Parse scans raw in a single left-to-right pass.
func Parse(raw string) (*Handle, error) {
	sc := &scanner{data: raw}
	h := &Handle{Raw: raw}

	if sc.peek() == projectDelim {
		sc.pos++
		project, err := sc.readUntil("/<=")
		if err != nil {
			return nil, err
		}
		h.Project = project
		if sc.peek() == rootDelim {
			sc.pos++
			root, err := sc.readUntil("=<")
			if err != nil {
				return nil, err
			}
			h.SourceRoot = root
		}
	}

	// Remaining classpath attributes are opaque.
	if !sc.skipPast(packageDelim) {
		return h, nil
	}
	h.HasPackage = true

	pkg, err := sc.readUntil("{[~")
	if err != nil {
		return nil, err
	}
	h.Package = pkg
	if sc.eof() {
		return h, nil
	}
	if sc.peek() != unitDelim {
		return nil, sc.errorf("expected '{' before %q", sc.peek())
	}
	sc.pos++

	unit, err := sc.readUntil("[~")
	if err != nil {
		return nil, err
	}
	if unit == "" {
		return nil, sc.errorf("empty compilation unit name")
	}
	h.Unit = unit

	for sc.peek() == typeDelim {
		sc.pos++
		name, err := sc.readUntil("[~")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, sc.errorf("empty type name")
		}
		h.Types = append(h.Types, name)
	}
	if sc.eof() {
		return h, nil
	}
	if len(h.Types) == 0 {
		return nil, sc.errorf("member without declaring type")
	}

	// sc.peek() is now '~'.
	sc.pos++
	h.HasMember = true
	member, err := sc.readUntil("~")
	if err != nil {
		return nil, err
	}
	if member == "" {
		return nil, sc.errorf("empty member name")
	}
	h.Member = member

	for sc.peek() == memberDelim {
		sc.pos++
		sig, err := sc.readUntil("~")
		if err != nil {
			return nil, err
		}
		h.Params = append(h.Params, sig)
	}
	return h, nil
}

type scanner struct {
	data string
	pos  int
}

func (sc *scanner) eof() bool {
	return sc.pos >= len(sc.data)
}

func (sc *scanner) peek() byte {
	if sc.eof() {
		return 0
	}
	return sc.data[sc.pos]
}

func (sc *scanner) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: sc.pos, Msg: fmt.Sprintf(format, args...)}
}

// readUntil consumes an unescaped token up to (not including) the first
// unescaped byte in stops, or the end of input.
func (sc *scanner) readUntil(stops string) (string, error) {
	var b strings.Builder
	for !sc.eof() {
		c := sc.data[sc.pos]
		if c == escape {
			if sc.pos+1 >= len(sc.data) {
				return "", sc.errorf("dangling escape")
			}
			b.WriteByte(sc.data[sc.pos+1])
			sc.pos += 2
			continue
		}
		if strings.IndexByte(stops, c) >= 0 {
			break
		}
		b.WriteByte(c)
		sc.pos++
	}
	return b.String(), nil
}

// skipPast advances beyond the first unescaped delim. It reports false and
// leaves the cursor at the end when delim does not occur.
func (sc *scanner) skipPast(delim byte) bool {
	for !sc.eof() {
		c := sc.data[sc.pos]
		if c == escape {
			sc.pos += 2
			continue
		}
		sc.pos++
		if c == delim {
			return true
		}
	}
	sc.pos = len(sc.data)
	return false
}
