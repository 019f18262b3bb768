package golang

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"testing"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphPkg = "github.com/acme/graph"

func param(name string, typ *ir.TypeDescriptor) *ir.ParameterDescriptor {
	return &ir.ParameterDescriptor{Name: name, Type: typ}
}

// graphProxyDescriptor returns a transformed descriptor of a graph interface.
func graphProxyDescriptor() *ir.ClassDescriptor {
	c := ir.NewClass(graphPkg + ".GraphInterfaceProxy")
	c.ShortName = "github_com_acme_graph_GraphInterfaceProxy"
	c.Modifiers = []string{ir.ModifierExported}
	c.ParentFullName = proxykit.ObjectProxyName
	c.ImplementedInterfaces = []string{graphPkg + ".GraphInterface"}
	c.Origin = graphPkg + ".GraphInterface"

	count := ir.NewMethod("NodesCount", ir.ModifierExported)
	count.Parameters.Set("previousNodesCount", param("previousNodesCount", ir.NewType("int", false)))
	count.Results = []*ir.TypeDescriptor{ir.NewType("int", false)}
	c.Methods.Set("NodesCount", count)

	find := ir.NewMethod("Find", ir.ModifierExported)
	find.Parameters.Set("name", &ir.ParameterDescriptor{Name: "name", Type: ir.NewType("string", false), HasDefaultValue: true, DefaultValue: "root"})
	find.Parameters.Set("mode", &ir.ParameterDescriptor{
		Name:                   "mode",
		Type:                   ir.NewType("string", false),
		HasDefaultValue:        true,
		DefaultIsNamedConstant: true,
		ConstantReferenceName:  graphPkg + ".CONST1",
		DefaultValue:           "CONST1_VALUE",
	})
	find.Parameters.Set("tags", &ir.ParameterDescriptor{Name: "tags", Type: ir.NewType("string", false), Variadic: true})
	find.Results = []*ir.TypeDescriptor{ir.NewType(graphPkg+".Node", true), ir.NewType("error", false)}
	c.Methods.Set("Find", find)

	clone := ir.NewMethod("Clone", ir.ModifierExported)
	clone.Results = []*ir.TypeDescriptor{ir.NewType(graphPkg+".GraphInterface", false)}
	c.Methods.Set("Clone", clone)

	reset := ir.NewMethod("Reset", ir.ModifierExported, ir.ModifierPointer)
	reset.Parameters.Set("p", param("p", nil))
	reset.Parameters.Set("type", param("type", ir.NewType("int|string", true)))
	reset.Parameters.Set("out", param("out", ir.NewType("io.Reader&io.Closer", false)))
	c.Methods.Set("Reset", reset)

	return c
}

func TestRender(t *testing.T) {
	src, err := Render(graphProxyDescriptor(), Options{})
	require.NoError(t, err)
	got := string(src)

	for _, want := range []string{
		"package proxies\n",
		"\tgraph \"github.com/acme/graph\"\n",
		"\tio \"io\"\n",
		"\tproxykit \"github.com/broady/proxykit\"\n",
		"//proxy:class name=github.com/acme/graph.GraphInterfaceProxy parent=github.com/broady/proxykit.ObjectProxy origin=github.com/acme/graph.GraphInterface modifiers=exported\n" +
			"type github_com_acme_graph_GraphInterfaceProxy struct {\n\t*proxykit.ObjectProxy\n}\n",
		"var _ graph.GraphInterface = (*github_com_acme_graph_GraphInterfaceProxy)(nil)\n",
		`proxykit.Define(&proxykit.Class{Name: "github.com/acme/graph.GraphInterfaceProxy", Parent: "github.com/broady/proxykit.ObjectProxy", Origin: "github.com/acme/graph.GraphInterface", Wrap: newgithub_com_acme_graph_GraphInterfaceProxy})`,
		"//proxy:method modifiers=exported\n" +
			"func (p *github_com_acme_graph_GraphInterfaceProxy) NodesCount(previousNodesCount int) int {\n" +
			"\tout := p.ObjectProxy.Call(\"NodesCount\", previousNodesCount)\n" +
			"\treturn proxykit.As[int](out[0])\n}\n",
		"//proxy:default name \"root\"\n" +
			"//proxy:const mode github.com/acme/graph.CONST1\n" +
			"//proxy:method modifiers=exported\n" +
			"func (p *github_com_acme_graph_GraphInterfaceProxy) Find(name string, mode string, tags ...string) (*graph.Node, error) {\n" +
			"\tout := p.ObjectProxy.Call(\"Find\", name, mode, tags)\n" +
			"\treturn proxykit.As[*graph.Node](out[0]), proxykit.As[error](out[1])\n}\n",
		"//proxy:method modifiers=exported rewrap=0\n" +
			"func (p *github_com_acme_graph_GraphInterfaceProxy) Clone() graph.GraphInterface {\n" +
			"\tout := p.ObjectProxy.Call(\"Clone\")\n" +
			"\treturn p.proxyWrap(out[0])\n}\n",
		"//proxy:method modifiers=exported,pointer\n",
		"func (p_ *github_com_acme_graph_GraphInterfaceProxy) Reset(p any, type_ interface{ int | string }, out interface {",
		"\tp_.ObjectProxy.Call(\"Reset\", p, type_, out)\n}\n",
		"func (p *github_com_acme_graph_GraphInterfaceProxy) proxyWrap(v any) graph.GraphInterface {\n" +
			"\tif v == nil {\n\t\treturn nil\n\t}\n" +
			"\treturn &github_com_acme_graph_GraphInterfaceProxy{ObjectProxy: p.ObjectProxy.Derive(v).(*proxykit.ObjectProxy)}\n}\n",
	} {
		assert.Contains(t, got, want)
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "proxy.go", src, parser.ParseComments)
	require.NoError(t, err)

	var funcs []string
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			funcs = append(funcs, fn.Name.Name)
		}
	}
	assert.Equal(t, []string{
		"init", "newgithub_com_acme_graph_GraphInterfaceProxy",
		"NodesCount", "Find", "Clone", "Reset", "proxyWrap",
	}, funcs)
}

func TestRender_Deterministic(t *testing.T) {
	first, err := Render(graphProxyDescriptor(), Options{Package: "gen"})
	require.NoError(t, err)
	second, err := Render(graphProxyDescriptor(), Options{Package: "gen"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "package gen\n")
}

func TestRender_ClassProxy(t *testing.T) {
	c := ir.NewClass("example.com/cars.CarProxy")
	c.ShortName = "example_com_cars_CarProxy"
	c.ParentFullName = "example.com/logging.LoggingProxy"
	c.Origin = "example.com/cars.Car"
	self := ir.NewMethod("Self", ir.ModifierExported)
	self.Results = []*ir.TypeDescriptor{ir.NewType("example.com/cars.Car", true)}
	c.Methods.Set("Self", self)
	value := ir.NewMethod("Value", ir.ModifierExported)
	value.Results = []*ir.TypeDescriptor{ir.NewType("example.com/cars.Car", false)}
	c.Methods.Set("Value", value)

	src, err := Render(c, Options{})
	require.NoError(t, err)
	got := string(src)

	assert.Contains(t, got, "type example_com_cars_CarProxy struct {\n\t*logging.LoggingProxy\n}\n")
	assert.Contains(t, got, "return &example_com_cars_CarProxy{LoggingProxy: d.(*logging.LoggingProxy)}")
	assert.Contains(t, got, "out := p.LoggingProxy.Call(\"Self\")\n\treturn proxykit.As[*cars.Car](out[0])")
	assert.Contains(t, got, "//proxy:method modifiers=exported rewrap=0\nfunc (p *example_com_cars_CarProxy) Self() *cars.Car {")
	assert.Contains(t, got, "//proxy:method modifiers=exported\nfunc (p *example_com_cars_CarProxy) Value() cars.Car {")
	assert.NotContains(t, got, "var _ ")
	assert.NotContains(t, got, "proxyWrap", "struct proxies re-wrap only when loaded dynamically")
}

func TestRender_ParameterShadowsImport(t *testing.T) {
	c := ir.NewClass("example.com/web.ClientProxy")
	c.ShortName = "example_com_web_ClientProxy"
	c.ParentFullName = proxykit.ObjectProxyName
	c.Origin = "example.com/web.Client"

	parse := ir.NewMethod("Parse", ir.ModifierExported)
	parse.Parameters.Set("url", &ir.ParameterDescriptor{Name: "url", Type: ir.NewType("string", false), HasDefaultValue: true, DefaultValue: "https://example.com"})
	parse.Parameters.Set("url_", param("url_", ir.NewType("bool", false)))
	parse.Parameters.Set("proxykit", param("proxykit", nil))
	parse.Results = []*ir.TypeDescriptor{ir.NewType("net/url.URL", true), ir.NewType("error", false)}
	c.Methods.Set("Parse", parse)

	src, err := Render(c, Options{})
	require.NoError(t, err)

	assert.Contains(t, string(src),
		"//proxy:default url_ \"https://example.com\"\n"+
			"//proxy:method modifiers=exported\n"+
			"func (p *example_com_web_ClientProxy) Parse(url_ string, url__ bool, proxykit_ any) (*url.URL, error) {\n"+
			"\tout := p.ObjectProxy.Call(\"Parse\", url_, url__, proxykit_)\n"+
			"\treturn proxykit.As[*url.URL](out[0]), proxykit.As[error](out[1])\n}\n")
}

func TestRender_Errors(t *testing.T) {
	iface := ir.NewClass("example.com/x.I")
	iface.IsInterface = true
	iface.ParentFullName = proxykit.ObjectProxyName

	orphan := ir.NewClass("example.com/x.CProxy")

	badDefault := ir.NewClass("example.com/x.DProxy")
	badDefault.ParentFullName = proxykit.ObjectProxyName
	m := ir.NewMethod("Do", ir.ModifierExported)
	m.Parameters.Set("f", &ir.ParameterDescriptor{Name: "f", Type: ir.NewType("float64", false), HasDefaultValue: true, DefaultValue: math.Inf(1)})
	badDefault.Methods.Set("Do", m)

	for name, desc := range map[string]*ir.ClassDescriptor{
		"interface":   iface,
		"no parent":   orphan,
		"bad default": badDefault,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Render(desc, Options{})
			assert.True(t, errors.Is(err, proxykit.ErrInvalidDescriptor), "got %v", err)
		})
	}
}
