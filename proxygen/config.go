package proxygen

import (
	"go/token"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/provider"
)

// Config holds the configuration of a Manager.
type Config struct {
	// CacheDir is the root directory rendered sources are cached in.
	// Empty disables persistent caching: sources are regenerated and loaded
	// from memory every time a class is missing from the process.
	CacheDir string

	// Suffix is appended to the full name of a proxied type.
	// Default: "Proxy"
	Suffix string `validate:"omitempty,goident"`

	// Package is the package clause of rendered sources.
	// Default: "proxies"
	Package string `validate:"omitempty,goident"`

	// Provider selects the type extraction strategy.
	// "source" (default) - uses go/packages on the packages below Dir
	// "manifest" - reads the YAML file named by Manifest
	// Ignored when Facility is set.
	Provider string `validate:"omitempty,oneof=source manifest"`

	// Packages are loaded together ahead of the first lookup when using the
	// source provider. Other packages are loaded on demand.
	// e.g. []string{"github.com/myorg/myapp/..."}
	Packages []string

	// Dir is the directory packages are resolved from. Default: the
	// current directory.
	Dir string

	// Manifest is the path of the YAML manifest for the manifest provider.
	Manifest string `validate:"required_if=Provider manifest"`

	// Facility overrides Provider, for example with a ReflectionFacility
	// holding registered types.
	Facility provider.Facility `validate:"-"`

	// Logger receives generation and cache events. Default: slog.Default().
	Logger *slog.Logger `validate:"-"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
	return v
}()

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}
	if cfg.Package == "" {
		cfg.Package = "proxies"
	}
	if cfg.Provider == "" {
		cfg.Provider = "source"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// validateConfig reports every invalid field as proxykit.ErrInvalidConfig.
func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return proxykit.FromValidation(proxykit.CodeInvalidConfig, err)
	}
	return nil
}

// newFacility creates the facility selected by cfg.
func newFacility(cfg Config) (provider.Facility, error) {
	if cfg.Facility != nil {
		return cfg.Facility, nil
	}
	switch cfg.Provider {
	case "manifest":
		return provider.LoadManifest(cfg.Manifest)
	default:
		return provider.NewSourceFacility(cfg.Dir), nil
	}
}
