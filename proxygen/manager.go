package proxygen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/cache"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
	"github.com/broady/proxykit/proxygen/loader"
	"github.com/broady/proxykit/proxygen/provider"
)

// Manager creates proxies, generating and loading proxy classes on demand.
//
// Example:
//
//	m, _ := proxygen.NewManager(proxygen.Config{CacheDir: ".proxycache"})
//	p, _ := m.CreateObjectProxy(ctx, "github.com/acme/graph.GraphInterface",
//	    proxykit.ObjectProxyName, &graph.Graph{})
//
// When the generated proxy of the type is compiled into the program, p
// implements graph.GraphInterface. Otherwise p is a *proxykit.Object.
type Manager struct {
	cfg       Config
	facility  provider.Facility
	extractor *provider.Extractor
	cache     *cache.Cache
	loader    *loader.Loader
	logger    *slog.Logger

	// mu serializes generation so concurrent misses do not render twice.
	mu          sync.Mutex
	preloadOnce sync.Once
	preloadErr  error
}

// NewManager validates cfg and creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	cfg = applyConfigDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	facility, err := newFacility(cfg)
	if err != nil {
		return nil, err
	}
	resolver, _ := facility.(provider.ConstantResolver)

	return &Manager{
		cfg:       cfg,
		facility:  facility,
		extractor: provider.NewExtractor(facility, cfg.Logger),
		cache:     cache.New(cfg.CacheDir, cfg.Logger),
		loader:    loader.New(resolver, cfg.Logger),
		logger:    cfg.Logger,
	}, nil
}

// ClassName returns the full name of the proxy class generated for typeName.
func (m *Manager) ClassName(typeName string) string {
	return typeName + m.cfg.Suffix
}

// CreateObjectProxy returns a new proxy of typeName built on the base proxy
// type baseProxyTypeName. The arguments are passed to the base type's
// factory, which for proxykit.ObjectProxyName takes the target followed by
// proxykit.Option values.
//
// The proxy class is generated, cached, and loaded on the first call for a
// type; later calls in the same process reuse the loaded class.
func (m *Manager) CreateObjectProxy(ctx context.Context, typeName, baseProxyTypeName string, args ...any) (any, error) {
	class, err := m.Class(ctx, typeName, baseProxyTypeName)
	if err != nil {
		return nil, err
	}
	return class.New(args...)
}

// Class returns the loaded proxy class of typeName, generating and loading
// it when the process does not have it yet.
func (m *Manager) Class(ctx context.Context, typeName, baseProxyTypeName string) (*proxykit.Class, error) {
	name := m.ClassName(typeName)
	if class, ok := proxykit.Lookup(name); ok {
		return m.checkParent(class, baseProxyTypeName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have loaded it while we waited.
	if class, ok := proxykit.Lookup(name); ok {
		return m.checkParent(class, baseProxyTypeName)
	}

	src, ok := m.cache.Retrieve(ctx, typeName, baseProxyTypeName)
	if ok {
		m.logger.DebugContext(ctx, "proxy cache hit",
			slog.String("type", typeName),
			slog.String("base", baseProxyTypeName))
	} else {
		var err error
		src, err = m.Generate(ctx, typeName, baseProxyTypeName)
		if err != nil {
			return nil, err
		}
		if err := m.cache.Store(ctx, typeName, baseProxyTypeName, src); err != nil {
			return nil, err
		}
	}

	var class *proxykit.Class
	var err error
	if m.cache.Enabled() {
		path, perr := m.cache.ResolvePath(typeName, baseProxyTypeName)
		if perr != nil {
			return nil, perr
		}
		class, err = m.loader.LoadFile(ctx, path)
	} else {
		class, err = m.loader.Load(ctx, src)
	}
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "proxy class loaded",
		slog.String("class", class.Name),
		slog.String("base", class.Parent),
		slog.Bool("cached", m.cache.Enabled()))
	return m.checkParent(class, baseProxyTypeName)
}

// checkParent rejects a class loaded for another base proxy type. Classes
// are keyed by name alone, so a type has one proxy class per process.
func (m *Manager) checkParent(class *proxykit.Class, baseProxyTypeName string) (*proxykit.Class, error) {
	if class.Parent != baseProxyTypeName {
		return nil, proxykit.Errorf(proxykit.CodeInvalidArgument,
			"proxy class %s is loaded with base %s, not %s", class.Name, class.Parent, baseProxyTypeName).
			WithDetail("class", class.Name)
	}
	return class, nil
}

// Describe returns a fresh descriptor of typeName as extracted by the
// configured facility.
func (m *Manager) Describe(ctx context.Context, typeName string) (*ir.ClassDescriptor, error) {
	if err := m.preload(ctx); err != nil {
		return nil, err
	}
	return m.extractor.Describe(ctx, typeName)
}

// Generate renders the proxy class source of typeName without caching or
// loading it. The result carries no generated-code header.
func (m *Manager) Generate(ctx context.Context, typeName, baseProxyTypeName string) ([]byte, error) {
	desc, err := m.Describe(ctx, typeName)
	if err != nil {
		return nil, err
	}
	Transform(desc, baseProxyTypeName, m.cfg.Suffix)

	src, err := golang.Render(desc, golang.Options{Package: m.cfg.Package})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "proxy class generated",
		slog.String("type", typeName),
		slog.String("class", desc.FullName),
		slog.Int("methods", desc.Methods.Len()))
	return src, nil
}

func (m *Manager) preload(ctx context.Context) error {
	sf, ok := m.facility.(*provider.SourceFacility)
	if !ok || len(m.cfg.Packages) == 0 {
		return nil
	}
	m.preloadOnce.Do(func() {
		m.preloadErr = sf.Preload(ctx, m.cfg.Packages...)
	})
	return m.preloadErr
}
