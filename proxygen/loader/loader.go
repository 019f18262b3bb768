// Package loader turns rendered proxy sources into classes the running
// process can instantiate.
//
// Go cannot compile source at runtime. Instead, the loader reads the class
// and method directives the renderer places in the source and builds a
// dynamic class whose instances dispatch by method name. Compiled proxies
// register themselves from their init function and never reach the loader.
package loader

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"os"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/internal/directive"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/provider"
)

// Loader loads rendered proxy sources.
type Loader struct {
	resolver provider.ConstantResolver
	logger   *slog.Logger
}

// New creates a loader. The resolver supplies the values of constant
// defaults and may be nil when no loaded source uses them. A nil logger
// discards output.
func New(resolver provider.ConstantResolver, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{resolver: resolver, logger: logger}
}

// LoadFile loads the proxy source stored at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*proxykit.Class, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, proxykit.Errorf(proxykit.CodeLoad, "failed to read %s: %w", path, err)
	}
	return l.load(ctx, path, src)
}

// Load loads proxy source held in memory.
func (l *Loader) Load(ctx context.Context, src []byte) (*proxykit.Class, error) {
	return l.load(ctx, "", src)
}

// load parses src and defines its class. If a class with the same name is
// already defined, that class is returned.
func (l *Loader) load(ctx context.Context, filename string, src []byte) (*proxykit.Class, error) {
	class, err := l.parse(ctx, filename, src)
	if err != nil {
		return nil, proxykit.Errorf(proxykit.CodeLoad, "%w", err)
	}

	defined := proxykit.Define(class)
	l.logger.DebugContext(ctx, "proxy class loaded",
		slog.String("class", defined.Name),
		slog.String("parent", defined.Parent),
		slog.Int("methods", len(defined.Methods)),
		slog.Bool("new", defined == class))
	return defined, nil
}

func (l *Loader) parse(ctx context.Context, filename string, src []byte) (*proxykit.Class, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy source: %w", err)
	}
	decls, err := directive.ParseFile(fset, f)
	if err != nil {
		return nil, err
	}

	var class *proxykit.Class
	var typeName string
	for _, decl := range decls {
		d, ok := directive.Find(decl.Directives, directive.KindClass)
		if !ok {
			continue
		}
		if class != nil {
			return nil, fmt.Errorf("%s: more than one class directive", d.Pos)
		}
		var args directive.ClassArgs
		if err := d.Decode(&args); err != nil {
			return nil, err
		}
		if typeName = declaredType(decl.Node); typeName == "" {
			return nil, fmt.Errorf("%s: class directive must precede a type declaration", d.Pos)
		}
		class = &proxykit.Class{Name: args.Name, Parent: args.Parent, Origin: args.Origin}
	}
	if class == nil {
		return nil, fmt.Errorf("no %s%s directive found", directive.Prefix, directive.KindClass)
	}

	for _, decl := range decls {
		d, ok := directive.Find(decl.Directives, directive.KindMethod)
		if !ok {
			continue
		}
		fn, ok := decl.Node.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || receiverType(fn) != typeName {
			return nil, fmt.Errorf("%s: method directive must precede a method of %s", d.Pos, typeName)
		}
		m, err := l.method(ctx, fn, decl.Directives)
		if err != nil {
			return nil, err
		}
		class.Methods = append(class.Methods, m)
	}
	return class, nil
}

func (l *Loader) method(ctx context.Context, fn *ast.FuncDecl, directives []directive.Directive) (*proxykit.Method, error) {
	m := &proxykit.Method{Name: fn.Name.Name}
	for _, field := range fn.Type.Params.List {
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			m.Variadic = true
		}
		for _, name := range field.Names {
			m.Params = append(m.Params, proxykit.Param{Name: name.Name})
		}
	}

	for _, d := range directives {
		switch d.Kind {
		case directive.KindMethod:
			var args directive.MethodArgs
			if err := d.Decode(&args); err != nil {
				return nil, err
			}
			m.Modifiers = args.Modifiers
			m.Rewrap = args.Rewrap

		case directive.KindDefault, directive.KindConst:
			name, value, err := d.Param()
			if err != nil {
				return nil, err
			}
			p := findParam(m.Params, name)
			if p == nil {
				return nil, fmt.Errorf("%s: %s has no parameter %s", d.Pos, m.Name, name)
			}
			v, err := l.defaultValue(ctx, d, value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.Pos, err)
			}
			p.HasDefault = true
			p.Default = v
		}
	}
	return m, nil
}

func (l *Loader) defaultValue(ctx context.Context, d directive.Directive, value string) (any, error) {
	if d.Kind == directive.KindDefault {
		return golang.ParseLiteral(value)
	}
	if l.resolver == nil {
		return nil, fmt.Errorf("constant %s cannot be resolved without a resolver", value)
	}
	return l.resolver.ResolveConstant(ctx, value)
}

func findParam(params []proxykit.Param, name string) *proxykit.Param {
	for i := range params {
		if params[i].Name == name {
			return &params[i]
		}
	}
	return nil
}

func declaredType(decl ast.Decl) string {
	gd, ok := decl.(*ast.GenDecl)
	if !ok || gd.Tok != token.TYPE || len(gd.Specs) != 1 {
		return ""
	}
	return gd.Specs[0].(*ast.TypeSpec).Name.Name
}

func receiverType(fn *ast.FuncDecl) string {
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}
