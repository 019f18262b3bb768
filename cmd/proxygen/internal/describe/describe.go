package describe

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/broady/proxykit/cmd/proxygen/internal/flags"
	"github.com/broady/proxykit/proxygen"
)

type Cmd struct {
	Type string `arg:"" help:"Full name of the type, e.g. github.com/acme/graph.GraphInterface."`

	flags.Provider `embed:""`
}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *Cmd) run(ctx context.Context, w io.Writer) error {
	m, err := proxygen.NewManager(c.Config())
	if err != nil {
		return err
	}
	desc, err := m.Describe(ctx, c.Type)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}
