package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	graphType = "github.com/acme/graph.GraphInterface"
	graphPath = "github.com/acme/graph/GraphInterface.ObjectProxy.go"
)

func TestCache_StoreRetrieve(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := New(root, nil)
	require.True(t, c.Enabled())

	_, ok := c.Retrieve(ctx, graphType, proxykit.ObjectProxyName)
	assert.False(t, ok, "nothing stored yet")

	src := []byte("package proxies\n")
	require.NoError(t, c.Store(ctx, graphType, proxykit.ObjectProxyName, src))

	got, ok := c.Retrieve(ctx, graphType, proxykit.ObjectProxyName)
	require.True(t, ok)
	assert.Equal(t, golang.Header+"package proxies\n", string(got))

	onDisk, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(graphPath)))
	require.NoError(t, err)
	assert.Equal(t, got, onDisk)

	_, ok = c.Retrieve(ctx, graphType, "github.com/acme/proxies.TracingProxy")
	assert.False(t, ok, "entries are keyed by base proxy type")
}

func TestCache_ResolvePath(t *testing.T) {
	root := t.TempDir()
	c := New(root, nil)

	got, err := c.ResolvePath(graphType, proxykit.ObjectProxyName)
	require.NoError(t, err)

	absRoot, _ := filepath.Abs(root)
	assert.Equal(t, filepath.Join(absRoot, "github.com", "acme", "graph", "GraphInterface.ObjectProxy.go"), got)

	info, err := os.Stat(filepath.Dir(got))
	require.NoError(t, err, "directory is created on demand")
	assert.True(t, info.IsDir())

	again, err := c.ResolvePath(graphType, proxykit.ObjectProxyName)
	require.NoError(t, err, "an existing directory is not an error")
	assert.Equal(t, got, again)

	top, err := c.ResolvePath("Local", "Base")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(absRoot, "Local.Base.go"), top)
}

func TestCache_DirectoryCreationError(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "github.com"), nil, 0644))
	c := New(root, nil)

	_, err := c.ResolvePath(graphType, proxykit.ObjectProxyName)
	assert.ErrorIs(t, err, proxykit.ErrDirectoryCreation)

	err = c.Store(ctx, graphType, proxykit.ObjectProxyName, []byte("package proxies\n"))
	assert.ErrorIs(t, err, proxykit.ErrDirectoryCreation)
}

func TestCache_Inert(t *testing.T) {
	ctx := context.Background()
	c := New("", nil)

	assert.False(t, c.Enabled())
	require.NoError(t, c.Store(ctx, graphType, proxykit.ObjectProxyName, []byte("package proxies\n")))
	_, ok := c.Retrieve(ctx, graphType, proxykit.ObjectProxyName)
	assert.False(t, ok)
	_, err := c.ResolvePath(graphType, proxykit.ObjectProxyName)
	assert.Error(t, err)
}

func TestCache_UnreadableIsAbsent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := New(root, nil)

	// A directory where the file should be cannot be read as a file.
	require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(graphPath)), 0755))

	_, ok := c.Retrieve(ctx, graphType, proxykit.ObjectProxyName)
	assert.False(t, ok)
}

func TestCache_InvalidNames(t *testing.T) {
	c := New(t.TempDir(), nil)

	_, err := c.ResolvePath("github.com/acme/graph.", proxykit.ObjectProxyName)
	assert.ErrorIs(t, err, proxykit.ErrInvalidArgument)

	_, ok := c.Retrieve(context.Background(), graphType, "")
	assert.False(t, ok)
}
