package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/common"
)

type searchCmd struct {
	*env
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search the price provider for assets" }
func (*searchCmd) Usage() string {
	return `coinfolio search <query>

  Lists matching assets with the identifier used for pricing.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.TrimSpace(strings.Join(f.Args(), " "))
	if query == "" {
		fmt.Fprint(c.stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		coins, err := a.Resolver.Search(ctx, query)
		if err != nil {
			return c.fail("Search failed: %v", err)
		}
		fmt.Fprint(c.stdout, formatSearchResults(query, coins))
		return subcommands.ExitSuccess
	})
}

type assetsCmd struct {
	*env
}

func (*assetsCmd) Name() string     { return "assets" }
func (*assetsCmd) Synopsis() string { return "list assets resolved without a network lookup" }
func (*assetsCmd) Usage() string {
	return `coinfolio assets
`
}

func (*assetsCmd) SetFlags(*flag.FlagSet) {}

func (c *assetsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		fmt.Fprint(c.stdout, formatKnownAssets(a.Resolver.KnownAssets()))
		return subcommands.ExitSuccess
	})
}

type versionCmd struct {
	*env
}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "print version information" }
func (*versionCmd) Usage() string {
	return `coinfolio version
`
}

func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (c *versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(c.stdout, "coinfolio %s\n", common.GetFullVersion())
	return subcommands.ExitSuccess
}
