package proxygen

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/internal/testfixtures"
	_ "github.com/broady/proxykit/internal/testfixtures/proxies"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtures = "github.com/broady/proxykit/internal/testfixtures"

// Classes live in a process-wide registry, so every test uses its own suffix.
func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func createObject(t *testing.T, m *Manager, typeName, base string, args ...any) *proxykit.Object {
	t.Helper()
	v, err := m.CreateObjectProxy(context.Background(), typeName, base, args...)
	require.NoError(t, err)
	obj, ok := v.(*proxykit.Object)
	require.True(t, ok, "expected *proxykit.Object, got %T", v)
	return obj
}

func TestManager_NodesCount(t *testing.T) {
	m := newManager(t, Config{Suffix: "CountProxy"})
	obj := createObject(t, m, fixtures+".GraphInterface", proxykit.ObjectProxyName, &testfixtures.Graph{})

	out, err := obj.Invoke("NodesCount", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out[0])
	assert.Equal(t, proxykit.StatusSuccess, obj.ResultStatus())
}

func TestManager_Compiled(t *testing.T) {
	m := newManager(t, Config{})
	graph := &testfixtures.Graph{Name: "g"}

	v, err := m.CreateObjectProxy(context.Background(), fixtures+".GraphInterface", proxykit.ObjectProxyName, graph)
	require.NoError(t, err)
	p, ok := v.(testfixtures.GraphInterface)
	require.True(t, ok, "compiled proxies implement the origin interface, got %T", v)

	assert.Equal(t, 2, p.NodesCount(1))
	same := p.GetGraphInstance()
	assert.NotSame(t, graph, same)
	assert.Same(t, graph, same.(proxykit.Dispatcher).Instance())
	assert.Equal(t, 6, same.NodesCount(5))
}

func TestManager_CompiledMatchesGenerated(t *testing.T) {
	committed, err := os.ReadFile(filepath.Join("..", "internal", "testfixtures", "proxies", "graphinterface_proxy.go"))
	require.NoError(t, err)

	m := newManager(t, Config{})
	src, err := m.Generate(context.Background(), fixtures+".GraphInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)
	assert.Equal(t, string(committed), golang.Header+string(src), "run go generate ./internal/testfixtures/proxies")
}

func TestManager_Idempotent(t *testing.T) {
	m := newManager(t, Config{Suffix: "IdemProxy"})
	ctx := context.Background()

	first, err := m.Class(ctx, fixtures+".GraphInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)
	second, err := m.Class(ctx, fixtures+".GraphInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, fixtures+".GraphInterfaceIdemProxy", first.Name)

	a := createObject(t, m, fixtures+".GraphInterface", proxykit.ObjectProxyName, &testfixtures.Graph{})
	b := createObject(t, m, fixtures+".GraphInterface", proxykit.ObjectProxyName, &testfixtures.Graph{})
	assert.NotSame(t, a, b)
	assert.Same(t, a.Class(), b.Class())
}

func TestManager_Rewrap(t *testing.T) {
	m := newManager(t, Config{Suffix: "SelfProxy"})
	graph := &testfixtures.Graph{Name: "g"}
	obj := createObject(t, m, fixtures+".GraphInterface", proxykit.ObjectProxyName, graph)

	out, err := obj.Invoke("GetGraphInstance")
	require.NoError(t, err)
	same, ok := out[0].(*proxykit.Object)
	require.True(t, ok, "expected a new proxy, got %T", out[0])
	assert.NotSame(t, obj, same)
	assert.Same(t, graph, same.Instance())
	assert.Same(t, obj.Class(), same.Class())

	out, err = obj.Invoke("MakeNewGraph")
	require.NoError(t, err)
	made := out[0].(*proxykit.Object)
	assert.NotSame(t, graph, made.Instance())
	assert.Equal(t, "g", made.Instance().(*testfixtures.Graph).Name)
}

func TestManager_TargetError(t *testing.T) {
	m := newManager(t, Config{Suffix: "StallProxy"})
	obj := createObject(t, m, fixtures+".EngineInterface", proxykit.ObjectProxyName, &testfixtures.Engine{})

	out, err := obj.Invoke("Start", 0)
	require.NoError(t, err, "target errors are results")
	assert.Equal(t, false, out[0])
	assert.Same(t, testfixtures.ErrStall, out[1])
	assert.True(t, obj.HasCurrentError())
	assert.Same(t, testfixtures.ErrStall, obj.CurrentError())
	assert.Equal(t, proxykit.StatusFailed, obj.ResultStatus())

	out, err = obj.Invoke("Start", 1)
	require.NoError(t, err)
	assert.Equal(t, true, out[0])
	assert.False(t, obj.HasCurrentError(), "a successful call clears the error")
}

func TestManager_Defaults(t *testing.T) {
	m := newManager(t, Config{Suffix: "JoinProxy"})
	obj := createObject(t, m, fixtures+".Variadic", proxykit.ObjectProxyName, testfixtures.Joiner{})

	out, err := obj.Invoke("Join", "/", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", out[0])

	out, err = obj.Invoke("Join")
	require.NoError(t, err)
	assert.Equal(t, "", out[0], "sep takes its default and no parts are passed")

	out, err = obj.Invoke("Skip", 5, "abc")
	require.NoError(t, err)
	assert.Equal(t, true, out[0])

	_, err = obj.Invoke("Skip", 5)
	assert.ErrorIs(t, err, proxykit.ErrArgumentCount)
}

func TestManager_ConstantDefault(t *testing.T) {
	m := newManager(t, Config{Suffix: "ConstProxy"})
	class, err := m.Class(context.Background(), fixtures+".NodeInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)

	method, ok := class.Method("NodeInterfaceMethod1")
	require.True(t, ok)
	require.Len(t, method.Params, 8)
	assert.Equal(t, proxykit.Param{Name: "param6", HasDefault: true, Default: 3.5}, method.Params[5])
	assert.Equal(t, proxykit.Param{Name: "param7", HasDefault: true, Default: []any{}}, method.Params[6])
	assert.Equal(t, proxykit.Param{Name: "param8", HasDefault: true, Default: "CONST1_VALUE"}, method.Params[7])

	_, ok = class.Method("GrandParentMethod4")
	assert.True(t, ok, "inherited methods are forwarded")
}

func TestManager_Cache(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{Suffix: "CachedProxy", CacheDir: dir})
	obj := createObject(t, m, fixtures+".CarInterface", proxykit.ObjectProxyName, &horsepower{hp: 90})

	out, err := obj.Invoke("Horsepower")
	require.NoError(t, err)
	assert.Equal(t, 90, out[0])

	path := filepath.Join(dir, "github.com", "broady", "proxykit", "internal", "testfixtures", "CarInterface.ObjectProxy.go")
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(src, []byte(golang.Header)))
	assert.Contains(t, string(src), "//proxy:class name="+fixtures+".CarInterfaceCachedProxy")
}

func TestManager_CacheHit(t *testing.T) {
	dir := t.TempDir()
	base := proxykit.ObjectProxyName

	// Seed the cache with a source whose NodesCount argument has a default.
	gen := newManager(t, Config{Suffix: "HitProxy"})
	src, err := gen.Generate(context.Background(), fixtures+".GraphInterface", base)
	require.NoError(t, err)
	edited := strings.Replace(string(src), "//proxy:method", "//proxy:default previousNodesCount 41\n//proxy:method", 1)
	require.NotEqual(t, string(src), edited)

	m := newManager(t, Config{Suffix: "HitProxy", CacheDir: dir})
	require.NoError(t, m.cache.Store(context.Background(), fixtures+".GraphInterface", base, []byte(edited)))

	obj := createObject(t, m, fixtures+".GraphInterface", base, &testfixtures.Graph{})
	out, err := obj.Invoke("NodesCount")
	require.NoError(t, err)
	assert.Equal(t, 42, out[0], "the class was loaded from the cached file")
}

func TestManager_LoggingProxy(t *testing.T) {
	m := newManager(t, Config{Suffix: "LoggedProxy"})
	obj := createObject(t, m, fixtures+".GraphInterface", testfixtures.LoggingProxyName, &testfixtures.Graph{})

	base, ok := obj.Dispatcher.(*testfixtures.LoggingProxy)
	require.True(t, ok, "expected *testfixtures.LoggingProxy, got %T", obj.Dispatcher)
	assert.Equal(t, "", base.Log())

	out, err := obj.Invoke("GetGraphInstance")
	require.NoError(t, err)
	assert.Equal(t, "", base.Log(), "GetGraphInstance is not logged")

	derived := out[0].(*proxykit.Object).Dispatcher.(*testfixtures.LoggingProxy)
	assert.NotSame(t, base, derived)

	_, err = obj.Invoke("NodesCount", 1)
	require.NoError(t, err)
	assert.Equal(t, "Log", base.Log())
	assert.Equal(t, "", derived.Log(), "derived proxies keep their own log")
}

func TestManager_BaseMismatch(t *testing.T) {
	m := newManager(t, Config{Suffix: "OneBaseProxy"})
	ctx := context.Background()

	_, err := m.Class(ctx, fixtures+".GraphInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)

	_, err = m.Class(ctx, fixtures+".GraphInterface", testfixtures.LoggingProxyName)
	assert.ErrorIs(t, err, proxykit.ErrInvalidArgument)
}

func TestManager_NotFound(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{Suffix: "MissingProxy", CacheDir: dir})

	_, err := m.CreateObjectProxy(context.Background(), fixtures+".Missing", proxykit.ObjectProxyName, &testfixtures.Graph{})
	require.ErrorIs(t, err, proxykit.ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is cached when extraction fails")
}

func TestManager_UnknownBase(t *testing.T) {
	m := newManager(t, Config{Suffix: "NoBaseProxy"})

	_, err := m.CreateObjectProxy(context.Background(), fixtures+".CarInterface", "example.com/nowhere.Base", &testfixtures.Car{})
	assert.ErrorIs(t, err, proxykit.ErrNotFound)
}

type greeter struct{}

func (greeter) Greet(name, punct string) string { return "Hello, " + name + punct }

func TestManager_ManifestProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  - name: example.com/greet.Greeter
    kind: interface
    methods:
      - name: Greet
        params:
          - {name: name, type: string}
          - {name: punct, type: string, default: '"!"'}
        results: [string]
`), 0644))

	m := newManager(t, Config{Suffix: "ManifestProxy", Provider: "manifest", Manifest: path})
	obj := createObject(t, m, "example.com/greet.Greeter", proxykit.ObjectProxyName, greeter{})

	out, err := obj.Invoke("Greet", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ann!", out[0])
}

func TestManager_ReflectionFacility(t *testing.T) {
	f := provider.NewReflectionFacility()
	name := f.Register(reflect.TypeFor[testfixtures.Variadic](),
		provider.ParamNames("Join", "sep", "parts"),
		provider.Default("Join", "sep", "+"),
	)

	m := newManager(t, Config{Suffix: "ReflectedProxy", Facility: f})
	obj := createObject(t, m, name, proxykit.ObjectProxyName, testfixtures.Joiner{})

	out, err := obj.Invoke("Join")
	require.NoError(t, err)
	assert.Equal(t, "", out[0])

	out, err = obj.Invoke("Join", "-", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "x-y", out[0])
}

// Tally is a struct whose methods return a new *Tally.
type Tally struct{ N int }

func (t *Tally) With(n int) *Tally { return &Tally{N: t.N + n} }

func (t *Tally) Reset() *Tally { return nil }

func TestManager_StructRewrap(t *testing.T) {
	f := provider.NewReflectionFacility()
	name := f.Register(reflect.TypeFor[Tally](), provider.ParamNames("With", "n"))

	m := newManager(t, Config{Suffix: "TallyProxy", Facility: f})
	tally := &Tally{N: 1}
	obj := createObject(t, m, name, proxykit.ObjectProxyName, tally)

	method, ok := obj.Class().Method("With")
	require.True(t, ok)
	assert.Equal(t, []int{0}, method.Rewrap)

	out, err := obj.Invoke("With", 2)
	require.NoError(t, err)
	next, ok := out[0].(*proxykit.Object)
	require.True(t, ok, "expected *Tally results to be re-wrapped, got %T", out[0])
	assert.NotSame(t, obj, next)
	assert.Same(t, obj.Class(), next.Class())
	assert.Equal(t, &Tally{N: 3}, next.Instance())

	out, err = next.Invoke("With", 4)
	require.NoError(t, err)
	assert.Equal(t, &Tally{N: 7}, out[0].(*proxykit.Object).Instance())

	out, err = obj.Invoke("Reset")
	require.NoError(t, err)
	assert.Equal(t, (*Tally)(nil), out[0], "nil results stay unwrapped")
}

func TestManager_Describe(t *testing.T) {
	m := newManager(t, Config{Packages: []string{fixtures}})

	desc, err := m.Describe(context.Background(), fixtures+".CarInterface")
	require.NoError(t, err)
	assert.True(t, desc.IsInterface)
	assert.Equal(t, []string{"Horsepower", "Ride", "Park"}, desc.Methods.Keys())
}

func TestManager_Generate(t *testing.T) {
	m := newManager(t, Config{Suffix: "GeneratedProxy", Package: "carproxy"})

	src, err := m.Generate(context.Background(), fixtures+".CarInterface", proxykit.ObjectProxyName)
	require.NoError(t, err)
	got := string(src)
	assert.True(t, strings.HasPrefix(got, "package carproxy\n"))
	assert.Contains(t, got, "var _ testfixtures.CarInterface = (*github_com_broady_proxykit_internal_testfixtures_CarInterfaceGeneratedProxy)(nil)")
	assert.Contains(t, got, "func (p *github_com_broady_proxykit_internal_testfixtures_CarInterfaceGeneratedProxy) Ride() {\n\tp.ObjectProxy.Call(\"Ride\")\n}")

	_, ok := proxykit.Lookup(fixtures + ".CarInterfaceGeneratedProxy")
	assert.False(t, ok, "Generate does not load the class")
}

func TestNewManager_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		contains string
	}{
		{"suffix", Config{Suffix: "Bad-Suffix"}, "Config.Suffix"},
		{"package", Config{Package: "1pkg"}, "Config.Package"},
		{"provider", Config{Provider: "bogus"}, "must be one of: source manifest"},
		{"manifest required", Config{Provider: "manifest"}, "Config.Manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.cfg)
			require.ErrorIs(t, err, proxykit.ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.contains)
		})
	}

	_, err := NewManager(Config{Provider: "manifest", Manifest: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

type horsepower struct{ hp int }

func (h *horsepower) Horsepower() int { return h.hp }
func (h *horsepower) Ride()           {}
func (h *horsepower) Park()           {}
