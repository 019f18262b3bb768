package provider

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/ir"
)

// Extractor builds class descriptors from the facts of a Facility.
type Extractor struct {
	facility Facility
	logger   *slog.Logger
}

// NewExtractor creates an extractor over f. A nil logger discards output.
func NewExtractor(f Facility, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{facility: f, logger: logger}
}

// Describe returns a fresh descriptor of the named type.
//
// Any failure to resolve the name is reported as proxykit.ErrNotFound, with
// the facility's error kept as the cause.
func (e *Extractor) Describe(ctx context.Context, typeName string) (*ir.ClassDescriptor, error) {
	facts, err := e.facility.Lookup(ctx, typeName)
	if err != nil {
		return nil, proxykit.Errorf(proxykit.CodeNotFound, "type %s not found: %w", typeName, err).
			WithDetail("type", typeName)
	}

	c := ir.NewClass(facts.FullName)
	c.IsInterface = facts.IsInterface
	c.Modifiers = slices.Clone(facts.Modifiers)
	c.ParentFullName = facts.Parent
	c.ImplementedInterfaces = slices.Clone(facts.Interfaces)
	if c.ImplementedInterfaces == nil {
		c.ImplementedInterfaces = []string{}
	}

	for _, mf := range facts.Methods {
		m := ir.NewMethod(mf.Name, slices.Clone(mf.Modifiers)...)
		if facts.IsInterface {
			m.RemoveModifier(ir.ModifierAbstract)
		}
		for _, pf := range mf.Params {
			m.Parameters.Set(pf.Name, describeParam(pf))
		}
		results := mf.Results
		if len(results) == 0 {
			results = mf.TentativeResults
		}
		for _, r := range results {
			if t := describeType(r); t != nil {
				m.Results = append(m.Results, t)
			}
		}
		c.Methods.Set(m.Name, m)
	}

	e.logger.DebugContext(ctx, "type described",
		slog.String("type", c.FullName),
		slog.Bool("interface", c.IsInterface),
		slog.Int("methods", c.Methods.Len()))
	return c, nil
}

func describeParam(pf ParamFacts) *ir.ParameterDescriptor {
	p := &ir.ParameterDescriptor{
		Name:     pf.Name,
		Type:     describeType(pf.Type),
		Variadic: pf.Variadic,
	}
	switch {
	case pf.ConstantRef != "":
		p.HasDefaultValue = true
		p.DefaultIsNamedConstant = true
		p.ConstantReferenceName = pf.ConstantRef
		p.DefaultValue = pf.Default
	case pf.HasDefault:
		p.HasDefaultValue = true
		p.DefaultValue = pf.Default
	}
	return p
}

// describeType flattens a type expression. Union members are joined with "|"
// and intersection members with "&"; members share the aggregate nullability.
func describeType(x *TypeExpr) *ir.TypeDescriptor {
	if x == nil {
		return nil
	}
	switch x.Kind {
	case KindUnion:
		return ir.NewType(joinMembers(x.Members, "|"), x.AllowsNull)
	case KindIntersection:
		return ir.NewType(joinMembers(x.Members, "&"), x.AllowsNull)
	}
	return ir.NewType(x.Name, x.AllowsNull)
}

func joinMembers(members []*TypeExpr, sep string) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		if t := describeType(m); t != nil {
			names = append(names, t.Name)
		}
	}
	return strings.Join(names, sep)
}
