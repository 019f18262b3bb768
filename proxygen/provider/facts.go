// Package provider implements the facilities that extract type information
// from Go code and the extractor that converts it into class descriptors.
package provider

import (
	"context"
	"go/token"
	"strings"

	"github.com/broady/proxykit/proxygen/ir"
)

// Facility resolves type names into facts. It is the boundary between the
// generator and a source of type information: go/types, runtime reflection,
// or a manifest.
type Facility interface {
	Lookup(ctx context.Context, name string) (*TypeFacts, error)
}

// ConstantResolver resolves a fully qualified constant reference, such as
// "github.com/acme/graph.CONST1", to its value.
type ConstantResolver interface {
	ResolveConstant(ctx context.Context, ref string) (any, error)
}

// TypeExprKind distinguishes plain, union and intersection type expressions.
type TypeExprKind int

const (
	KindNamed TypeExprKind = iota
	KindUnion
	KindIntersection
)

// TypeExpr is a facility-neutral type expression.
type TypeExpr struct {
	Kind TypeExprKind
	// Name is the canonical type name of a KindNamed expression.
	Name    string
	Members []*TypeExpr
	// AllowsNull reports whether the declaration carried the pointer marker.
	AllowsNull bool
}

// Named returns a plain type expression.
func Named(name string, allowsNull bool) *TypeExpr {
	return &TypeExpr{Kind: KindNamed, Name: name, AllowsNull: allowsNull}
}

// ParseTypeExpr parses the textual type forms used by manifests and
// registration options: "*T" for a nullable type, "A|B" for a union and
// "A&B" for an intersection. An empty string yields nil.
func ParseTypeExpr(s string) *TypeExpr {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, sep := range []struct {
		kind TypeExprKind
		sep  string
	}{{KindUnion, "|"}, {KindIntersection, "&"}} {
		if !strings.Contains(s, sep.sep) {
			continue
		}
		x := &TypeExpr{Kind: sep.kind}
		for _, m := range strings.Split(s, sep.sep) {
			member := ParseTypeExpr(m)
			if member == nil {
				continue
			}
			if member.Name == "nil" {
				x.AllowsNull = true
				continue
			}
			x.Members = append(x.Members, member)
		}
		if len(x.Members) == 1 {
			x.Members[0].AllowsNull = x.AllowsNull || x.Members[0].AllowsNull
			return x.Members[0]
		}
		return x
	}
	if strings.HasPrefix(s, "*") {
		return Named(s[1:], true)
	}
	return Named(s, false)
}

// ParamFacts describes a parameter.
type ParamFacts struct {
	Name string
	// Type is nil for an untyped parameter.
	Type       *TypeExpr
	Variadic   bool
	HasDefault bool
	Default    any
	// ConstantRef is the fully qualified constant the default refers to.
	ConstantRef string
}

// MethodFacts describes a method.
type MethodFacts struct {
	Name      string
	Modifiers []string
	Params    []ParamFacts
	Results   []*TypeExpr
	// TentativeResults are used when the method declares no results.
	TentativeResults []*TypeExpr
}

// TypeFacts describes a class or interface.
type TypeFacts struct {
	FullName    string
	IsInterface bool
	Modifiers   []string
	// Parent is the full name of the parent class, if any.
	Parent     string
	Interfaces []string
	Methods    []MethodFacts
}

func visibility(name string) string {
	if token.IsExported(name) {
		return ir.ModifierExported
	}
	return ir.ModifierUnexported
}
