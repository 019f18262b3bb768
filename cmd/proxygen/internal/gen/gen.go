package gen

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/broady/proxykit"
	"github.com/broady/proxykit/cmd/proxygen/internal/flags"
	"github.com/broady/proxykit/proxygen"
	"github.com/broady/proxykit/proxygen/golang"
	"github.com/broady/proxykit/proxygen/ir"
	"github.com/broady/proxykit/proxygen/sink"
)

type Cmd struct {
	Type    string `arg:"" help:"Full name of the type to proxy, e.g. github.com/acme/graph.GraphInterface."`
	Base    string `help:"Full name of the base proxy type." default:"${base}"`
	Out     string `help:"Output directory for the generated file." short:"o" default:"."`
	Package string `help:"Package clause of the generated file." short:"p" default:"proxies"`
	Suffix  string `help:"Suffix appended to the proxied type name." default:"Proxy"`
	Stdout  bool   `help:"Print the generated source instead of writing it."`
	DryRun  bool   `help:"Generate without writing files." short:"n"`
	Keep    bool   `help:"Fail instead of replacing an existing file."`

	flags.Provider `embed:""`
}

// Vars supplies the defaults interpolated into the command's flags.
var Vars = map[string]string{"base": proxykit.ObjectProxyName}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *Cmd) run(ctx context.Context, w io.Writer) error {
	cfg := c.Config()
	cfg.Package = c.Package
	cfg.Suffix = c.Suffix
	m, err := proxygen.NewManager(cfg)
	if err != nil {
		return err
	}

	src, err := m.Generate(ctx, c.Type, c.Base)
	if err != nil {
		return err
	}
	content := append([]byte(golang.Header), src...)

	if c.Stdout {
		_, err := w.Write(content)
		return err
	}

	name := FileName(c.Type, c.Suffix)
	var out sink.OutputSink
	if c.DryRun {
		out = sink.NewMemorySink()
	} else {
		fs := sink.NewFilesystemSink(c.Out)
		fs.Overwrite = !c.Keep
		out = fs
	}
	if err := out.WriteFile(ctx, name, content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	verb := "wrote"
	if c.DryRun {
		verb = "would write"
	}
	fmt.Fprintf(w, "%s %s %s (%d bytes)\n",
		color.New(color.FgGreen).Sprint("✓"), verb, name, len(content))
	return nil
}

// FileName returns the name of the file holding the proxy of typeName.
func FileName(typeName, suffix string) string {
	_, short := ir.SplitName(typeName)
	return strings.ToLower(short) + "_" + strings.ToLower(suffix) + ".go"
}
