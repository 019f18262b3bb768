// Package golang renders proxy class descriptors as Go source.
package golang

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/internal/directive"
	"github.com/broady/proxykit/proxygen/ir"
	"golang.org/x/tools/imports"
)

// Header starts every generated file written to disk.
const Header = "// Code generated by proxygen. DO NOT EDIT.\n\n"

const proxykitPath = "github.com/broady/proxykit"

// Options configures rendering.
type Options struct {
	// Package is the package clause of the generated file.
	// Defaults to "proxies".
	Package string
}

// Render emits the Go source of a transformed proxy class descriptor.
// The output is gofmt-formatted and identical for identical descriptors.
func Render(desc *ir.ClassDescriptor, opts Options) ([]byte, error) {
	if desc.IsInterface {
		return nil, proxykit.Errorf(proxykit.CodeInvalidDescriptor, "cannot render interface %s as a proxy class", desc.FullName)
	}
	if desc.ParentFullName == "" {
		return nil, proxykit.Errorf(proxykit.CodeInvalidDescriptor, "class %s has no parent proxy type", desc.FullName)
	}
	if opts.Package == "" {
		opts.Package = "proxies"
	}

	e := newEmitter(desc)
	var buf bytes.Buffer
	if err := e.emitFile(&buf, opts.Package); err != nil {
		return nil, err
	}

	out, err := imports.Process("", buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, proxykit.Errorf(proxykit.CodeInvalidDescriptor, "format %s: %w", desc.FullName, err)
	}
	return out, nil
}

// emitter handles Go code emission for a single proxy class.
type emitter struct {
	desc *ir.ClassDescriptor
	q    *qualifier

	pk          string // alias of the proxykit package
	typeName    string
	parentField string
	parentType  string
	// rewrapType is the origin interface re-wrapped by proxyWrap, or empty.
	rewrapType string
}

func newEmitter(desc *ir.ClassDescriptor) *emitter {
	paths := map[string]bool{proxykitPath: true}
	collectPaths(desc.ParentFullName, paths)
	for _, iface := range desc.ImplementedInterfaces {
		collectPaths(iface, paths)
	}
	for _, m := range desc.Methods.Values() {
		for _, p := range m.Parameters.Values() {
			if p.Type != nil {
				collectPaths(p.Type.Name, paths)
			}
		}
		for _, r := range m.Results {
			collectPaths(r.Name, paths)
		}
	}

	e := &emitter{
		desc:     desc,
		q:        newQualifier(paths),
		typeName: SanitizeIdentifier(desc.ShortName),
	}
	e.pk = e.q.aliases[proxykitPath]
	_, e.parentField = ir.SplitName(desc.ParentFullName)
	e.parentType = e.q.qualify(desc.ParentFullName)
	if desc.Origin != "" && slices.Contains(desc.ImplementedInterfaces, desc.Origin) {
		e.rewrapType = e.q.qualify(desc.Origin)
	}
	return e
}

func (e *emitter) emitFile(buf *bytes.Buffer, pkg string) error {
	fmt.Fprintf(buf, "package %s\n\n", pkg)

	buf.WriteString("import (\n")
	for _, spec := range e.q.imports() {
		fmt.Fprintf(buf, "\t%s %s\n", spec.Alias, strconv.Quote(spec.Path))
	}
	buf.WriteString(")\n\n")

	e.emitType(buf)

	rewraps := false
	for _, m := range e.desc.Methods.Values() {
		wrapped, err := e.emitMethod(buf, m)
		if err != nil {
			return err
		}
		rewraps = rewraps || wrapped
	}

	if rewraps {
		e.emitWrapHelper(buf)
	}
	return nil
}

// emitType emits the struct declaration, interface assertions and registration.
func (e *emitter) emitType(buf *bytes.Buffer) {
	d := e.desc
	fmt.Fprintf(buf, "%sclass name=%s parent=%s", directive.Prefix, d.FullName, d.ParentFullName)
	if d.Origin != "" {
		fmt.Fprintf(buf, " origin=%s", d.Origin)
	}
	if len(d.Modifiers) > 0 {
		fmt.Fprintf(buf, " modifiers=%s", strings.Join(d.Modifiers, ","))
	}
	buf.WriteString("\n")
	fmt.Fprintf(buf, "type %s struct {\n\t*%s\n}\n\n", e.typeName, e.parentType)

	for _, iface := range d.ImplementedInterfaces {
		fmt.Fprintf(buf, "var _ %s = (*%s)(nil)\n", e.q.qualify(iface), e.typeName)
	}
	if len(d.ImplementedInterfaces) > 0 {
		buf.WriteString("\n")
	}

	fmt.Fprintf(buf, "func init() {\n\t%s.Define(&%s.Class{Name: %s, Parent: %s, Origin: %s, Wrap: new%s})\n}\n\n",
		e.pk, e.pk, strconv.Quote(d.FullName), strconv.Quote(d.ParentFullName), strconv.Quote(d.Origin), e.typeName)

	fmt.Fprintf(buf, "func new%s(d %s.Dispatcher) any {\n\treturn &%s{%s: d.(*%s)}\n}\n\n",
		e.typeName, e.pk, e.typeName, e.parentField, e.parentType)
}

// emitMethod emits one forwarding method and reports whether it re-wraps a result.
func (e *emitter) emitMethod(buf *bytes.Buffer, m *ir.MethodDescriptor) (bool, error) {
	params := m.Parameters.Values()

	// Parameters must not shadow the package aliases used in the body.
	taken := make(map[string]bool, len(params)+len(e.q.aliases))
	for _, alias := range e.q.aliases {
		taken[alias] = true
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = uniqueName(escapeReservedWord(p.Name), taken)
		taken[names[i]] = true
	}
	recv := uniqueName("p", taken)
	out := uniqueName("out", taken)

	// Directives
	for i, p := range params {
		switch {
		case !p.HasDefaultValue:
		case p.DefaultIsNamedConstant:
			fmt.Fprintf(buf, "%sconst %s %s\n", directive.Prefix, names[i], p.ConstantReferenceName)
		default:
			lit, err := FormatLiteral(p.DefaultValue)
			if err != nil {
				return false, proxykit.Errorf(proxykit.CodeInvalidDescriptor, "%s.%s parameter %s: %w", e.desc.FullName, m.Name, p.Name, err)
			}
			fmt.Fprintf(buf, "%sdefault %s %s\n", directive.Prefix, names[i], lit)
		}
	}

	rewrap := e.rewrapIndices(m)

	fmt.Fprintf(buf, "%smethod", directive.Prefix)
	if len(m.Modifiers) > 0 {
		fmt.Fprintf(buf, " modifiers=%s", strings.Join(m.Modifiers, ","))
	}
	if len(rewrap) > 0 {
		idx := make([]string, len(rewrap))
		for i, r := range rewrap {
			idx[i] = strconv.Itoa(r)
		}
		fmt.Fprintf(buf, " rewrap=%s", strings.Join(idx, ","))
	}
	buf.WriteString("\n")

	// Signature
	fmt.Fprintf(buf, "func (%s *%s) %s(", recv, e.typeName, m.Name)
	for i, p := range params {
		if i > 0 {
			buf.WriteString(", ")
		}
		typ := e.emitTypeExpr(p.Type)
		if p.Variadic {
			typ = "..." + typ
		}
		fmt.Fprintf(buf, "%s %s", names[i], typ)
	}
	buf.WriteString(")")
	results := make([]string, len(m.Results))
	for i, r := range m.Results {
		results[i] = e.emitTypeExpr(r)
	}
	switch len(results) {
	case 0:
	case 1:
		fmt.Fprintf(buf, " %s", results[0])
	default:
		fmt.Fprintf(buf, " (%s)", strings.Join(results, ", "))
	}
	buf.WriteString(" {\n")

	// Body
	call := fmt.Sprintf("%s.%s.Call(%s", recv, e.parentField, strconv.Quote(m.Name))
	for _, name := range names {
		call += ", " + name
	}
	call += ")"

	if len(results) == 0 {
		fmt.Fprintf(buf, "\t%s\n}\n\n", call)
		return false, nil
	}

	fmt.Fprintf(buf, "\t%s := %s\n\treturn ", out, call)
	for i, typ := range results {
		if i > 0 {
			buf.WriteString(", ")
		}
		if e.rewrapType != "" && slices.Contains(rewrap, i) {
			fmt.Fprintf(buf, "%s.proxyWrap(%s[%d])", recv, out, i)
			continue
		}
		fmt.Fprintf(buf, "%s.As[%s](%s[%d])", e.pk, typ, out, i)
	}
	buf.WriteString("\n}\n\n")
	return e.rewrapType != "" && len(rewrap) > 0, nil
}

// rewrapIndices returns the results of m that return the origin itself.
//
// For an interface origin these are results of the interface type, which the
// compiled proxy re-wraps through proxyWrap. For a struct origin they are
// *Origin results. A compiled proxy of a struct cannot stand in for *Origin,
// so those are re-wrapped only by dynamically loaded classes.
func (e *emitter) rewrapIndices(m *ir.MethodDescriptor) []int {
	if e.desc.Origin == "" {
		return nil
	}
	nullable := e.rewrapType == ""
	var idx []int
	for i, r := range m.Results {
		if r.Name == e.desc.Origin && r.AllowsNull == nullable {
			idx = append(idx, i)
		}
	}
	return idx
}

// emitWrapHelper emits proxyWrap, which wraps a returned origin value into a
// new proxy sharing this proxy's base configuration.
func (e *emitter) emitWrapHelper(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "func (p *%s) proxyWrap(v any) %s {\n", e.typeName, e.rewrapType)
	buf.WriteString("\tif v == nil {\n\t\treturn nil\n\t}\n")
	fmt.Fprintf(buf, "\treturn &%s{%s: p.%s.Derive(v).(*%s)}\n}\n",
		e.typeName, e.parentField, e.parentField, e.parentType)
}

// emitTypeExpr renders a type descriptor as a Go type expression with
// package paths replaced by their aliases.
func (e *emitter) emitTypeExpr(t *ir.TypeDescriptor) string {
	switch {
	case t == nil || t.IsAny():
		return "any"
	case t.IsIntersection():
		return "interface{ " + strings.Join(e.qualifyAll(t.Members()), "; ") + " }"
	case t.IsUnion():
		return "interface{ " + strings.Join(e.qualifyAll(t.Members()), " | ") + " }"
	case t.AllowsNull:
		return "*" + e.q.qualify(t.Name)
	}
	return e.q.qualify(t.Name)
}

func (e *emitter) qualifyAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = e.q.qualify(n)
	}
	return out
}
