// Package signature parses erased Java type signatures as they appear in
// method handles and renders them as runtime type names.
//
// Grammar:
//
//	Type      := '['* Element
//	Element   := Primitive | ('Q' | 'L') Reference ';' | 'T' Name ';'
//	Primitive := 'I' | 'J' | 'Z' | 'B' | 'C' | 'S' | 'F' | 'D'
//	Reference := Name ('<' TypeArg+ '>')? ('.' Name ('<' TypeArg+ '>')?)*
//	TypeArg   := '*' | ('+' | '-')? Type
//
// Type arguments are checked for well-formedness and then discarded.
package signature

import (
	"fmt"
	"strings"
)

// Kind classifies a parsed element type.
type Kind int

const (
	Primitive Kind = iota
	Reference
	TypeVariable
)

// ObjectType is the erasure of an unbounded type variable.
const ObjectType = "java.lang.Object"

var primitives = map[byte]string{
	'I': "int",
	'J': "long",
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'F': "float",
	'D': "double",
}

// Type is an erased parameter type.
type Type struct {
	Kind Kind
	// Name is the primitive keyword, the reference name as written (simple or
	// dotted, type arguments removed) or the type variable name.
	Name string
	// Qualified is set for 'L' references, whose names are already
	// fully qualified.
	Qualified bool
	Dims      int
}

// Qualifier expands a reference name written in source form into its
// fully-qualified runtime name.
type Qualifier interface {
	Qualify(name string) string
}

// QualifierFunc adapts a function to Qualifier.
type QualifierFunc func(name string) string

func (f QualifierFunc) Qualify(name string) string { return f(name) }

// Format renders t as a runtime type name, e.g. "java.util.List" or "int[][]".
func (t Type) Format(q Qualifier) string {
	var base string
	switch t.Kind {
	case Primitive:
		base = t.Name
	case TypeVariable:
		base = ObjectType
	case Reference:
		if t.Qualified {
			base = strings.ReplaceAll(t.Name, "/", ".")
		} else {
			base = q.Qualify(t.Name)
		}
	}
	return base + strings.Repeat("[]", t.Dims)
}

// SyntaxError describes why a signature does not match the grammar.
type SyntaxError struct {
	Sig    string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("signature %q at offset %d: %s", e.Sig, e.Offset, e.Msg)
}

// Parse parses exactly one signature; trailing input is an error.
func Parse(sig string) (Type, error) {
	p := &parser{data: sig}
	if p.eof() {
		return Type{}, p.errorf("empty signature")
	}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	if !p.eof() {
		return Type{}, p.errorf("unexpected trailing %q", p.data[p.pos:])
	}
	return t, nil
}

type parser struct {
	data string
	pos  int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

func (p *parser) consume() byte {
	if p.eof() {
		return 0
	}
	b := p.data[p.pos]
	p.pos++
	return b
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Sig: p.data, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseType() (Type, error) {
	dims := 0
	for p.peek() == '[' {
		p.pos++
		dims++
	}
	if p.eof() {
		return Type{}, p.errorf("missing element type")
	}

	c := p.consume()
	if name, ok := primitives[c]; ok {
		return Type{Kind: Primitive, Name: name, Dims: dims}, nil
	}

	switch c {
	case 'Q', 'L':
		name, err := p.parseReference()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Reference, Name: name, Qualified: c == 'L', Dims: dims}, nil
	case 'T':
		name, err := p.parseVariable()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: TypeVariable, Name: name, Dims: dims}, nil
	case 'V':
		p.pos--
		return Type{}, p.errorf("void is not a parameter type")
	}
	p.pos--
	return Type{}, p.errorf("unknown type code %q", c)
}

// parseReference reads a reference body after its 'Q' or 'L' code, through
// the terminating ';'.
func (p *parser) parseReference() (string, error) {
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated reference, expected ';'")
		}
		switch c := p.consume(); c {
		case ';':
			if b.Len() == 0 {
				return "", p.errorf("empty reference name")
			}
			return b.String(), nil
		case '<':
			if b.Len() == 0 {
				return "", p.errorf("type arguments without a type name")
			}
			if err := p.skipTypeArguments(); err != nil {
				return "", err
			}
		case '>':
			p.pos--
			return "", p.errorf("unmatched '>'")
		default:
			b.WriteByte(c)
		}
	}
}

// skipTypeArguments validates a type argument list after its '<' through the
// matching '>'.
func (p *parser) skipTypeArguments() error {
	open := p.pos - 1
	if p.peek() == '>' {
		return p.errorf("empty type argument list")
	}
	for {
		if p.eof() {
			return &SyntaxError{Sig: p.data, Offset: open, Msg: "unmatched '<'"}
		}
		switch p.peek() {
		case '>':
			p.pos++
			return nil
		case '*':
			p.pos++
			continue
		case '+', '-':
			p.pos++
		}
		if _, err := p.parseType(); err != nil {
			return err
		}
	}
}

func (p *parser) parseVariable() (string, error) {
	start := p.pos
	end := strings.IndexByte(p.data[start:], ';')
	if end < 0 {
		p.pos = len(p.data)
		return "", p.errorf("unterminated type variable, expected ';'")
	}
	if end == 0 {
		return "", p.errorf("empty type variable name")
	}
	p.pos = start + end + 1
	return p.data[start : start+end], nil
}
