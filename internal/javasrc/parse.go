// Package javasrc indexes Java compilation units with tree-sitter so that
// simple type names in handles can be expanded to the names the runtime
// uses: nested types, imports, sibling types and type parameters.
package javasrc

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Unit is the declaration skeleton of one compilation unit.
type Unit struct {
	Path    string
	Package string
	// Imports maps simple names to single-type imports.
	Imports map[string]string
	// OnDemand lists packages imported with '.*'.
	OnDemand []string
	Types    []*TypeDecl
}

// TypeDecl is a class, interface, enum, record or annotation declaration.
type TypeDecl struct {
	Name       string
	TypeParams []TypeParam
	// MethodTypeParams holds the type parameters of generic methods by
	// method name. Overloads share one entry.
	MethodTypeParams map[string][]TypeParam
	Nested           []*TypeDecl
}

// TypeParam is a declared type variable.
type TypeParam struct {
	Name string
	// Bound is the first bound without type arguments, empty when the
	// variable is unbounded.
	Bound string
}

var typeDeclarations = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

// ParseUnit extracts the package, imports and type tree of a Java source file.
// Each call uses its own parser; tree-sitter parsers are not goroutine-safe.
func ParseUnit(ctx context.Context, path string, source []byte) (*Unit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	u := &Unit{Path: path, Imports: make(map[string]string)}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch t := child.Type(); {
		case t == "package_declaration":
			u.Package = packageName(child, source)
		case t == "import_declaration":
			u.addImport(nodeText(child, source))
		case typeDeclarations[t]:
			if decl := parseTypeDecl(child, source); decl != nil {
				u.Types = append(u.Types, decl)
			}
		}
	}
	return u, nil
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func packageName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "scoped_identifier", "identifier":
			return strings.Join(strings.Fields(nodeText(child, source)), "")
		}
	}
	return ""
}

// addImport records an import declaration. Static imports name members, not
// types, and are ignored.
func (u *Unit) addImport(text string) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "import"))
	if strings.HasPrefix(text, "static ") || strings.HasPrefix(text, "static\t") {
		return
	}
	name := strings.Join(strings.Fields(text), "")
	if pkg, ok := strings.CutSuffix(name, ".*"); ok {
		u.OnDemand = append(u.OnDemand, pkg)
		return
	}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		u.Imports[name[idx+1:]] = name
	}
}

func parseTypeDecl(node *sitter.Node, source []byte) *TypeDecl {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	decl := &TypeDecl{
		Name:       nodeText(nameNode, source),
		TypeParams: typeParameters(node, source),
	}
	if body := node.ChildByFieldName("body"); body != nil {
		collectMembers(decl, body, source)
	}
	return decl
}

// typeParameters returns the type parameters declared on a type or method
// declaration.
func typeParameters(node *sitter.Node, source []byte) []TypeParam {
	params := node.ChildByFieldName("type_parameters")
	if params == nil {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "type_parameters" {
				params = child
				break
			}
		}
	}
	if params == nil {
		return nil
	}

	var out []TypeParam
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param.Type() != "type_parameter" {
			continue
		}
		var tp TypeParam
		for j := 0; j < int(param.NamedChildCount()); j++ {
			child := param.NamedChild(j)
			switch child.Type() {
			case "type_identifier", "identifier":
				if tp.Name == "" {
					tp.Name = nodeText(child, source)
				}
			case "type_bound":
				tp.Bound = firstBound(child, source)
			}
		}
		if tp.Name != "" {
			out = append(out, tp)
		}
	}
	return out
}

// firstBound returns the erasure-relevant bound of a type_bound node:
// the first bound type with its type arguments dropped.
func firstBound(bound *sitter.Node, source []byte) string {
	for i := 0; i < int(bound.NamedChildCount()); i++ {
		child := bound.NamedChild(i)
		if strings.HasSuffix(child.Type(), "annotation") {
			continue
		}
		text := strings.Join(strings.Fields(nodeText(child, source)), "")
		if idx := strings.IndexByte(text, '<'); idx >= 0 {
			text = text[:idx]
		}
		return text
	}
	return ""
}

// collectMembers walks a type body for nested types and generic methods.
// Enum bodies keep their member declarations under enum_body_declarations.
func collectMembers(decl *TypeDecl, body *sitter.Node, source []byte) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch t := child.Type(); {
		case typeDeclarations[t]:
			if nested := parseTypeDecl(child, source); nested != nil {
				decl.Nested = append(decl.Nested, nested)
			}
		case t == "method_declaration":
			decl.addMethodTypeParams(child, source)
		case t == "enum_body_declarations":
			collectMembers(decl, child, source)
		}
	}
}

func (d *TypeDecl) addMethodTypeParams(method *sitter.Node, source []byte) {
	nameNode := method.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	params := typeParameters(method, source)
	if len(params) == 0 {
		return
	}
	name := nodeText(nameNode, source)
	if d.MethodTypeParams == nil {
		d.MethodTypeParams = make(map[string][]TypeParam)
	}
	for _, tp := range params {
		if !slices.ContainsFunc(d.MethodTypeParams[name], func(p TypeParam) bool { return p.Name == tp.Name }) {
			d.MethodTypeParams[name] = append(d.MethodTypeParams[name], tp)
		}
	}
}
