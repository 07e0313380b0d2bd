package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/common"
)

type refreshCmd struct {
	*env
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch current prices once and save them" }
func (*refreshCmd) Usage() string {
	return `coinfolio refresh

  Resolves every asset, fetches prices in one batched request and saves the
  result. On failure nothing is changed and the exit status is non-zero.
`
}

func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		if !a.Portfolio.RefreshAll(ctx) {
			msg := a.Portfolio.LastError()
			if msg == "" {
				msg = "Refresh did not complete."
			}
			return c.fail("%s", msg)
		}
		fmt.Fprint(c.stdout, formatInvestments(
			a.Portfolio.InvestmentsWithCalculations(),
			a.Portfolio.Totals(),
			a.Portfolio.Status(),
			a.Config.QuoteCurrency,
		))
		return subcommands.ExitSuccess
	})
}

type watchCmd struct {
	*env
	interval time.Duration
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "refresh prices periodically until interrupted" }
func (*watchCmd) Usage() string {
	return `coinfolio watch [-interval <duration>]

  Refreshes immediately and then every interval (default sync.interval from
  the config) until SIGINT or SIGTERM.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.interval, "interval", 0, "Refresh interval, e.g. 5m (overrides sync.interval)")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		interval := c.interval
		if interval <= 0 {
			interval = a.Config.Sync.GetInterval()
		}

		common.PrintBanner(c.stdout, a.Config, a.Logger)
		a.StartPriceScheduler(interval)

		<-ctx.Done()

		common.PrintShutdownBanner(c.stdout, a.Logger)
		return subcommands.ExitSuccess
	})
}
