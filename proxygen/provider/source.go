package provider

import (
	"context"
	"fmt"
	"go/ast"
	"go/constant"
	"go/types"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/broady/proxykit/internal/directive"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
	"golang.org/x/tools/go/packages"
)

const sourceLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// SourceFacility extracts type facts by analyzing Go source code.
//
// Type names are written as "import/path.Name". Packages are loaded on first
// use and kept for the lifetime of the facility.
//
// Parameter defaults are declared with directives in the method's doc comment:
//
//	//proxy:default sep ", "
//	//proxy:const mode DefaultMode
//	Join(sep string, mode string) string
//
// A constant reference is either a name in the method's package, a name
// qualified by an imported package name, or a full "import/path.Name".
type SourceFacility struct {
	dir string

	mu   sync.Mutex
	pkgs map[string]*sourcePackage
}

type sourcePackage struct {
	pkg *packages.Package
	// docs maps "Type.Method" to the method's doc comment.
	docs map[string]*ast.CommentGroup
}

var (
	_ Facility         = (*SourceFacility)(nil)
	_ ConstantResolver = (*SourceFacility)(nil)
)

// NewSourceFacility creates a facility that loads packages relative to dir.
// An empty dir means the current directory.
func NewSourceFacility(dir string) *SourceFacility {
	return &SourceFacility{dir: dir, pkgs: make(map[string]*sourcePackage)}
}

// Preload loads packages ahead of lookups.
func (f *SourceFacility) Preload(ctx context.Context, patterns ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.loadLocked(ctx, patterns...)
	return err
}

func (f *SourceFacility) load(ctx context.Context, pkgPath string) (*sourcePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sp, ok := f.pkgs[pkgPath]; ok {
		return sp, nil
	}
	loaded, err := f.loadLocked(ctx, pkgPath)
	if err != nil {
		return nil, err
	}
	for _, sp := range loaded {
		if sp.pkg.PkgPath == pkgPath {
			return sp, nil
		}
	}
	return nil, fmt.Errorf("package %s not found", pkgPath)
}

func (f *SourceFacility) loadLocked(ctx context.Context, patterns ...string) ([]*sourcePackage, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     f.dir,
		Mode:    sourceLoadMode,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	loaded := make([]*sourcePackage, 0, len(pkgs))
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
		}
		sp := &sourcePackage{pkg: pkg, docs: indexDocs(pkg.Syntax)}
		f.pkgs[pkg.PkgPath] = sp
		loaded = append(loaded, sp)
	}
	return loaded, nil
}

// indexDocs collects the doc comments of interface methods and method
// declarations, keyed by "Type.Method".
func indexDocs(files []*ast.File) map[string]*ast.CommentGroup {
	docs := make(map[string]*ast.CommentGroup)
	for _, file := range files {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					it, ok := ts.Type.(*ast.InterfaceType)
					if !ok {
						continue
					}
					for _, field := range it.Methods.List {
						for _, name := range field.Names {
							docs[ts.Name.Name+"."+name.Name] = field.Doc
						}
					}
				}
			case *ast.FuncDecl:
				if d.Recv == nil || len(d.Recv.List) == 0 {
					continue
				}
				if recv := receiverName(d.Recv.List[0].Type); recv != "" {
					docs[recv+"."+d.Name.Name] = d.Doc
				}
			}
		}
	}
	return docs
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// Lookup returns the facts of a named interface or struct type.
func (f *SourceFacility) Lookup(ctx context.Context, name string) (*TypeFacts, error) {
	pkgPath, short := ir.SplitName(name)
	if pkgPath == "" {
		return nil, fmt.Errorf("type name %q is not package-qualified", name)
	}
	sp, err := f.load(ctx, pkgPath)
	if err != nil {
		return nil, err
	}

	obj := sp.pkg.Types.Scope().Lookup(short)
	if obj == nil {
		return nil, fmt.Errorf("type %s not found in package %s", short, pkgPath)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%s is not a type", name)
	}
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%s is not a named type", name)
	}

	b := &factsBuilder{ctx: ctx, f: f}
	if iface, ok := named.Underlying().(*types.Interface); ok {
		return b.interfaceFacts(named, iface)
	}
	return b.classFacts(named)
}

// ResolveConstant resolves a full "import/path.Name" constant reference.
func (f *SourceFacility) ResolveConstant(ctx context.Context, ref string) (any, error) {
	pkgPath, name := ir.SplitName(ref)
	if pkgPath == "" {
		return nil, fmt.Errorf("constant reference %q is not package-qualified", ref)
	}
	sp, err := f.load(ctx, pkgPath)
	if err != nil {
		return nil, err
	}
	c, ok := sp.pkg.Types.Scope().Lookup(name).(*types.Const)
	if !ok {
		return nil, fmt.Errorf("constant %s not found", ref)
	}
	return constantValue(c.Val()), nil
}

// factsBuilder accumulates facts for a single lookup.
type factsBuilder struct {
	ctx context.Context
	f   *SourceFacility
}

func (b *factsBuilder) interfaceFacts(named *types.Named, iface *types.Interface) (*TypeFacts, error) {
	facts := &TypeFacts{
		FullName:    objectName(named.Obj()),
		IsInterface: true,
		Modifiers:   []string{visibility(named.Obj().Name())},
	}

	seenMethods := make(map[string]bool)
	seenInterfaces := make(map[string]bool)

	var walk func(owner *types.Named, iface *types.Interface) error
	walk = func(owner *types.Named, iface *types.Interface) error {
		methods := make([]*types.Func, iface.NumExplicitMethods())
		for i := range methods {
			methods[i] = iface.ExplicitMethod(i)
		}
		sortByPos(methods)

		for _, m := range methods {
			if seenMethods[m.Name()] || !m.Exported() {
				continue
			}
			seenMethods[m.Name()] = true
			mf, err := b.methodFacts(owner, m, []string{ir.ModifierExported, ir.ModifierAbstract})
			if err != nil {
				return err
			}
			facts.Methods = append(facts.Methods, mf)
		}

		for i := 0; i < iface.NumEmbeddeds(); i++ {
			embedded, ok := types.Unalias(iface.EmbeddedType(i)).(*types.Named)
			if !ok {
				continue
			}
			ei, ok := embedded.Underlying().(*types.Interface)
			if !ok {
				continue
			}
			name := objectName(embedded.Obj())
			if !seenInterfaces[name] {
				seenInterfaces[name] = true
				facts.Interfaces = append(facts.Interfaces, name)
			}
			if err := walk(embedded, ei); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(named, iface); err != nil {
		return nil, err
	}
	return facts, nil
}

func (b *factsBuilder) classFacts(named *types.Named) (*TypeFacts, error) {
	facts := &TypeFacts{
		FullName:  objectName(named.Obj()),
		Modifiers: []string{visibility(named.Obj().Name())},
	}

	if st, ok := named.Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			field := st.Field(i)
			if !field.Embedded() {
				continue
			}
			t := types.Unalias(field.Type())
			if p, ok := t.(*types.Pointer); ok {
				t = types.Unalias(p.Elem())
			}
			embedded, ok := t.(*types.Named)
			if !ok {
				continue
			}
			switch embedded.Underlying().(type) {
			case *types.Interface:
				facts.Interfaces = append(facts.Interfaces, objectName(embedded.Obj()))
			case *types.Struct:
				if facts.Parent == "" {
					facts.Parent = objectName(embedded.Obj())
				}
			}
		}
	}

	// Own methods first, in source order.
	own := make([]*types.Func, named.NumMethods())
	for i := range own {
		own[i] = named.Method(i)
	}
	sortByPos(own)

	declared := make(map[string]bool, len(own))
	for _, m := range own {
		declared[m.Name()] = true
		if !m.Exported() {
			continue
		}
		mf, err := b.methodFacts(named, m, methodModifiers(m))
		if err != nil {
			return nil, err
		}
		facts.Methods = append(facts.Methods, mf)
	}

	// Then methods promoted through embedded fields.
	abstract := false
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		m, ok := mset.At(i).Obj().(*types.Func)
		if !ok || declared[m.Name()] || !m.Exported() {
			continue
		}
		mods := methodModifiers(m)
		abstract = abstract || slices.Contains(mods, ir.ModifierAbstract)
		mf, err := b.methodFacts(receiverNamed(m), m, mods)
		if err != nil {
			return nil, err
		}
		facts.Methods = append(facts.Methods, mf)
	}
	if abstract {
		facts.Modifiers = append(facts.Modifiers, ir.ModifierAbstract)
	}
	return facts, nil
}

func methodModifiers(m *types.Func) []string {
	mods := []string{visibility(m.Name())}
	recv := m.Type().(*types.Signature).Recv()
	if recv == nil {
		return mods
	}
	switch {
	case types.IsInterface(recv.Type()):
		mods = append(mods, ir.ModifierAbstract)
	default:
		if _, ok := recv.Type().(*types.Pointer); ok {
			mods = append(mods, ir.ModifierPointer)
		}
	}
	return mods
}

func receiverNamed(m *types.Func) *types.Named {
	recv := m.Type().(*types.Signature).Recv()
	if recv == nil {
		return nil
	}
	t := types.Unalias(recv.Type())
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
	}
	named, _ := t.(*types.Named)
	return named
}

func (b *factsBuilder) methodFacts(owner *types.Named, m *types.Func, modifiers []string) (MethodFacts, error) {
	sig := m.Type().(*types.Signature)
	mf := MethodFacts{Name: m.Name(), Modifiers: modifiers}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		v := params.At(i)
		name := v.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		t := v.Type()
		variadic := sig.Variadic() && i == params.Len()-1
		if variadic {
			if s, ok := t.(*types.Slice); ok {
				t = s.Elem()
			}
		}
		mf.Params = append(mf.Params, ParamFacts{Name: name, Type: typeExpr(t), Variadic: variadic})
	}

	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		mf.Results = append(mf.Results, typeExpr(results.At(i).Type()))
	}

	if err := b.applyDirectives(owner, &mf); err != nil {
		return MethodFacts{}, fmt.Errorf("%s.%s: %w", objectName(owner.Obj()), m.Name(), err)
	}
	return mf, nil
}

// applyDirectives reads default and const directives from the method's doc
// comment in the package that declares its owner.
func (b *factsBuilder) applyDirectives(owner *types.Named, mf *MethodFacts) error {
	if owner == nil || owner.Obj().Pkg() == nil {
		return nil
	}
	sp, err := b.f.load(b.ctx, owner.Obj().Pkg().Path())
	if err != nil {
		return err
	}
	directives, err := directive.Parse(sp.pkg.Fset, sp.docs[owner.Obj().Name()+"."+mf.Name])
	if err != nil {
		return err
	}

	for _, d := range directives {
		if d.Kind != directive.KindDefault && d.Kind != directive.KindConst {
			continue
		}
		name, value, err := d.Param()
		if err != nil {
			return err
		}
		p := findParam(mf.Params, name)
		if p == nil {
			return fmt.Errorf("%s: no parameter named %s", d.Pos, name)
		}
		if d.Kind == directive.KindDefault {
			v, err := golang.ParseLiteral(value)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Pos, err)
			}
			p.HasDefault = true
			p.Default = v
			continue
		}
		ref, v, err := b.resolveRef(sp, value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Pos, err)
		}
		p.HasDefault = true
		p.ConstantRef = ref
		p.Default = v
	}
	return nil
}

// resolveRef resolves a constant reference written in the scope of sp.
func (b *factsBuilder) resolveRef(sp *sourcePackage, ref string) (string, any, error) {
	scope := sp.pkg.Types.Scope()
	name := ref
	switch {
	case strings.Contains(ref, "/"):
		v, err := b.f.ResolveConstant(b.ctx, ref)
		return ref, v, err
	case strings.Contains(ref, "."):
		qual, rest, _ := strings.Cut(ref, ".")
		scope = nil
		for _, imp := range sp.pkg.Types.Imports() {
			if imp.Name() == qual {
				scope = imp.Scope()
				break
			}
		}
		if scope == nil {
			return "", nil, fmt.Errorf("package %s of constant %s is not imported", qual, ref)
		}
		name = rest
	}
	c, ok := scope.Lookup(name).(*types.Const)
	if !ok {
		return "", nil, fmt.Errorf("constant %s not found", ref)
	}
	return objectName(c), constantValue(c.Val()), nil
}

func findParam(params []ParamFacts, name string) *ParamFacts {
	for i := range params {
		if params[i].Name == name {
			return &params[i]
		}
	}
	return nil
}

func qualifier(p *types.Package) string {
	return p.Path()
}

// typeExpr converts a go/types type into a type expression. A single pointer
// to a named type becomes a nullable named type; interface literals made only
// of embedded types become intersections, and constraint unions become unions.
func typeExpr(t types.Type) *TypeExpr {
	if iface, ok := types.Unalias(t).(*types.Interface); ok && iface.Empty() {
		return Named(ir.AnyType, false)
	}

	switch tt := t.(type) {
	case *types.Pointer:
		if _, ok := types.Unalias(tt.Elem()).(*types.Pointer); !ok {
			if x := typeExpr(tt.Elem()); x.Kind == KindNamed && x.Name != ir.AnyType {
				x.AllowsNull = true
				return x
			}
		}
	case *types.Interface:
		if tt.NumExplicitMethods() > 0 {
			break
		}
		if tt.NumEmbeddeds() >= 2 {
			x := &TypeExpr{Kind: KindIntersection}
			for i := 0; i < tt.NumEmbeddeds(); i++ {
				x.Members = append(x.Members, typeExpr(tt.EmbeddedType(i)))
			}
			return x
		}
		if tt.NumEmbeddeds() == 1 {
			if u, ok := tt.EmbeddedType(0).(*types.Union); ok && u.Len() > 1 {
				x := &TypeExpr{Kind: KindUnion}
				for i := 0; i < u.Len(); i++ {
					term := u.Term(i)
					name := types.TypeString(term.Type(), qualifier)
					if term.Tilde() {
						name = "~" + name
					}
					x.Members = append(x.Members, Named(name, false))
				}
				return x
			}
		}
	}
	return Named(types.TypeString(t, qualifier), false)
}

func objectName(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func sortByPos(funcs []*types.Func) {
	sort.SliceStable(funcs, func(i, j int) bool { return funcs[i].Pos() < funcs[j].Pos() })
}

// constantValue converts a constant.Value to string, int, float64, or bool.
func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		if i64, ok := constant.Int64Val(v); ok {
			return int(i64)
		}
		return v.ExactString()
	case constant.Float:
		f64, _ := constant.Float64Val(v)
		return f64
	case constant.Bool:
		return constant.BoolVal(v)
	default:
		return v.String()
	}
}
