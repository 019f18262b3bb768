// Package flags holds the command line flags shared by proxygen commands.
package flags

import (
	"log/slog"
	"os"

	"github.com/broady/proxykit/proxygen"
)

// Provider selects and configures the type extraction strategy.
type Provider struct {
	Provider string `help:"Type extraction strategy (source or manifest)." default:"source" enum:"source,manifest"`
	Manifest string `help:"YAML manifest describing the types, for --provider=manifest."`
	Dir      string `help:"Directory packages are resolved from." short:"C" default:"."`
	Verbose  bool   `help:"Log generation events to stderr." short:"v"`
}

// Logger returns the logger commands report through.
func (p *Provider) Logger() *slog.Logger {
	level := slog.LevelWarn
	if p.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Config returns the manager configuration selected by the flags.
func (p *Provider) Config() proxygen.Config {
	return proxygen.Config{
		Provider: p.Provider,
		Manifest: p.Manifest,
		Dir:      p.Dir,
		Logger:   p.Logger(),
	}
}
