package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/proxykit/cmd/proxygen/internal/describe"
	"github.com/broady/proxykit/cmd/proxygen/internal/gen"
)

type CLI struct {
	Version  VersionCmd   `cmd:"" help:"Print version information."`
	Gen      gen.Cmd      `cmd:"" help:"Generate the proxy class of a type."`
	Describe describe.Cmd `cmd:"" help:"Print the class descriptor of a type as JSON."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("proxygen"),
		kong.Description("Generate forwarding proxies for Go interfaces and types."),
		kong.UsageOnError(),
		kong.DefaultEnvars("PROXYGEN"),
		kong.Vars(gen.Vars),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
