// Package cache persists rendered proxy sources between processes.
//
// A proxy of github.com/acme/graph.GraphInterface over the base proxy type
// github.com/broady/proxykit.ObjectProxy is stored at
//
//	<root>/github.com/acme/graph/GraphInterface.ObjectProxy.go
package cache

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
	"github.com/broady/proxykit/proxygen/sink"
)

// Cache stores rendered sources under a root directory.
// A Cache with an empty root is inert: nothing is stored and nothing is found.
type Cache struct {
	root   string
	sink   *sink.FilesystemSink
	logger *slog.Logger
}

// New creates a cache rooted at root. A nil logger discards output.
func New(root string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Cache{root: root, logger: logger}
	if root != "" {
		c.sink = sink.NewFilesystemSink(root)
	}
	return c
}

// Enabled reports whether the cache has a root directory.
func (c *Cache) Enabled() bool {
	return c.root != ""
}

// relPath returns the slash-separated location of a proxy source below the root.
func relPath(typeName, baseProxyTypeName string) (string, error) {
	pkg, short := ir.SplitName(typeName)
	if short == "" {
		return "", proxykit.Errorf(proxykit.CodeInvalidArgument, "type name %q has no name part", typeName)
	}
	_, baseShort := ir.SplitName(baseProxyTypeName)
	if baseShort == "" {
		return "", proxykit.Errorf(proxykit.CodeInvalidArgument, "base proxy type name %q has no name part", baseProxyTypeName)
	}

	file := short + "." + baseShort + ".go"
	if pkg == "" {
		return file, nil
	}
	return path.Join(strings.Trim(pkg, "/"), file), nil
}

// ResolvePath returns the file a proxy source is stored in. The containing
// directory is created on demand; failing that is proxykit.ErrDirectoryCreation.
func (c *Cache) ResolvePath(typeName, baseProxyTypeName string) (string, error) {
	if !c.Enabled() {
		return "", proxykit.NewError(proxykit.CodeDirectoryCreation, "cache has no root directory")
	}
	rel, err := relPath(typeName, baseProxyTypeName)
	if err != nil {
		return "", err
	}
	full, err := c.sink.Resolve(rel)
	if err != nil {
		return "", proxykit.Errorf(proxykit.CodeInvalidArgument, "%w", err)
	}
	if err := c.sink.EnsureDir(filepath.Dir(full)); err != nil {
		return "", err
	}
	return full, nil
}

// Store writes source, preceded by the generated-code header. It is a no-op
// for an inert cache.
func (c *Cache) Store(ctx context.Context, typeName, baseProxyTypeName string, source []byte) error {
	if !c.Enabled() {
		return nil
	}
	rel, err := relPath(typeName, baseProxyTypeName)
	if err != nil {
		return err
	}

	content := make([]byte, 0, len(golang.Header)+len(source))
	content = append(content, golang.Header...)
	content = append(content, source...)
	if err := c.sink.WriteFile(ctx, rel, content); err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "proxy source stored",
		slog.String("type", typeName),
		slog.String("base", baseProxyTypeName),
		slog.String("path", rel))
	return nil
}

// Retrieve returns a stored source, header included. A missing or unreadable
// file, and any lookup on an inert cache, is reported as absent.
func (c *Cache) Retrieve(ctx context.Context, typeName, baseProxyTypeName string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	rel, err := relPath(typeName, baseProxyTypeName)
	if err != nil {
		return nil, false
	}
	source, err := c.sink.ReadFile(ctx, rel)
	if err != nil {
		c.logger.DebugContext(ctx, "proxy source not cached",
			slog.String("type", typeName),
			slog.String("base", baseProxyTypeName),
			slog.Any("error", err))
		return nil, false
	}
	return source, true
}
