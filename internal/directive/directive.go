// Package directive parses proxykit directives from Go comments.
//
// Directives are line comments in the form:
//
//	//proxy:class name=<type> parent=<type> origin=<type> modifiers=exported
//	//proxy:method modifiers=exported,pointer rewrap=0
//	//proxy:default <param> <Go literal>
//	//proxy:const <param> <constant reference>
//
// Class and method directives carry key=value arguments which are decoded
// into ClassArgs and MethodArgs. List values are separated by commas.
// Default and const directives name a parameter followed by the rest of the
// line verbatim.
package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
)

// Prefix starts every directive comment.
const Prefix = "//proxy:"

// Kind represents the type of directive.
type Kind string

const (
	KindClass   Kind = "class"
	KindMethod  Kind = "method"
	KindDefault Kind = "default"
	KindConst   Kind = "const"
)

// Directive represents a parsed directive.
type Directive struct {
	Kind Kind
	Args string         // text after the kind, trimmed
	Pos  token.Position // source location
}

// ClassArgs are the arguments of a class directive.
type ClassArgs struct {
	Name      string   `schema:"name,required"`
	Parent    string   `schema:"parent,required"`
	Origin    string   `schema:"origin"`
	Modifiers []string `schema:"modifiers"`
}

// MethodArgs are the arguments of a method directive.
type MethodArgs struct {
	Modifiers []string `schema:"modifiers"`
	// Rewrap lists result indices that return the proxied type.
	Rewrap []int `schema:"rewrap"`
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(false)
	return d
}()

// Parse extracts the directives of a comment group.
// Comments without the directive prefix are ignored.
func Parse(fset *token.FileSet, cg *ast.CommentGroup) ([]Directive, error) {
	if cg == nil {
		return nil, nil
	}
	var directives []Directive
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, Prefix) {
			continue
		}
		pos := fset.Position(c.Pos())
		text := strings.TrimPrefix(c.Text, Prefix)
		kind, args, _ := strings.Cut(text, " ")
		switch Kind(kind) {
		case KindClass, KindMethod, KindDefault, KindConst:
		default:
			return nil, fmt.Errorf("%s: unknown directive %s%s", pos, Prefix, kind)
		}
		directives = append(directives, Directive{
			Kind: Kind(kind),
			Args: strings.TrimSpace(args),
			Pos:  pos,
		})
	}
	return directives, nil
}

// Decode decodes key=value arguments into dst, which must be a pointer to
// ClassArgs, MethodArgs, or a struct with schema tags.
func (d Directive) Decode(dst any) error {
	values := url.Values{}
	for _, field := range strings.Fields(d.Args) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return fmt.Errorf("%s: malformed argument %q", d.Pos, field)
		}
		if value == "" {
			continue
		}
		for _, v := range strings.Split(value, ",") {
			values.Add(key, v)
		}
	}
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("%s: %s%s: %w", d.Pos, Prefix, d.Kind, err)
	}
	return nil
}

// Param splits the arguments of a default or const directive into the
// parameter name and its value.
func (d Directive) Param() (name, value string, err error) {
	name, value, _ = strings.Cut(d.Args, " ")
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return "", "", fmt.Errorf("%s: %s%s requires a parameter name and a value", d.Pos, Prefix, d.Kind)
	}
	return name, value, nil
}

// Decl associates directives with the declaration that follows them.
type Decl struct {
	Node       ast.Decl
	Directives []Directive
}

// ParseFile extracts directives from a file and matches them to the type or
// function declarations they document.
//
// Returns an error if a directive is unknown or is not immediately followed by
// a declaration.
func ParseFile(fset *token.FileSet, f *ast.File) ([]Decl, error) {
	// Build a map of comment end positions to directives
	// so we can match them to the following declarations.
	pending := make(map[token.Pos][]Directive)
	for _, cg := range f.Comments {
		directives, err := Parse(fset, cg)
		if err != nil {
			return nil, err
		}
		if len(directives) > 0 {
			pending[cg.End()] = directives
		}
	}

	var decls []Decl
	for _, decl := range f.Decls {
		var doc *ast.CommentGroup
		switch d := decl.(type) {
		case *ast.FuncDecl:
			doc = d.Doc
		case *ast.GenDecl:
			doc = d.Doc
		}
		if doc == nil {
			continue
		}
		if directives, ok := pending[doc.End()]; ok {
			decls = append(decls, Decl{Node: decl, Directives: directives})
			delete(pending, doc.End())
		}
	}

	for _, directives := range pending {
		d := directives[0]
		return nil, fmt.Errorf("%s: %s%s directive must be followed by a declaration", d.Pos, Prefix, d.Kind)
	}

	return decls, nil
}

// Find returns the first directive of the given kind.
func Find(directives []Directive, kind Kind) (Directive, bool) {
	for _, d := range directives {
		if d.Kind == kind {
			return d, true
		}
	}
	return Directive{}, false
}
