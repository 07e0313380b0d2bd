package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/models"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
)

type addCmd struct {
	*env
	symbol string
	amount float64
	price  float64
	name   string
	notes  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new investment" }
func (*addCmd) Usage() string {
	return `coinfolio add -symbol <symbol> -amount <amount> [-price <price>] [-name <name>] [-notes <notes>]

  Records a purchase. Without -price the cost is unknown and the investment is
  excluded from invested totals and P/L.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Asset symbol, e.g. btc")
	f.Float64Var(&c.amount, "amount", 0, "Quantity held")
	f.Float64Var(&c.price, "price", 0, "Purchase price per unit in the quote currency")
	f.StringVar(&c.name, "name", "", "Optional display name")
	f.StringVar(&c.notes, "notes", "", "Optional notes")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	set := setFlags(f)
	if !set["symbol"] || !set["amount"] {
		fmt.Fprint(c.stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	in := models.NewInvestment{
		AssetSymbol: c.symbol,
		Amount:      c.amount,
		Name:        c.name,
		Notes:       c.notes,
	}
	if set["price"] {
		in.Price = models.Float64Ptr(c.price)
	}

	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		inv, err := a.Portfolio.AddInvestment(ctx, in)
		if err != nil {
			return c.fail("Failed to add investment: %v", err)
		}
		fmt.Fprintf(c.stdout, "Added investment %s\n", inv.ID)
		return subcommands.ExitSuccess
	})
}

type updateCmd struct {
	*env
	symbol     string
	amount     float64
	price      float64
	clearPrice bool
	name       string
	notes      string
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change fields of an investment" }
func (*updateCmd) Usage() string {
	return `coinfolio update <id> [-symbol <symbol>] [-amount <amount>] [-price <price> | -clear-price] [-name <name>] [-notes <notes>]

  Only the flags given are changed. Changing the symbol forgets the resolved
  identifier so the next refresh resolves it again.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "New asset symbol")
	f.Float64Var(&c.amount, "amount", 0, "New quantity")
	f.Float64Var(&c.price, "price", 0, "New purchase price per unit")
	f.BoolVar(&c.clearPrice, "clear-price", false, "Forget the purchase price")
	f.StringVar(&c.name, "name", "", "New display name")
	f.StringVar(&c.notes, "notes", "", "New notes")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	set := setFlags(f)
	var update models.InvestmentUpdate
	if set["symbol"] {
		update.AssetSymbol = &c.symbol
	}
	if set["amount"] {
		update.Amount = &c.amount
	}
	if set["price"] {
		update.Price = &c.price
	}
	update.ClearPrice = c.clearPrice
	if set["name"] {
		update.Name = &c.name
	}
	if set["notes"] {
		update.Notes = &c.notes
	}

	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		inv, err := a.Portfolio.UpdateInvestment(ctx, id, update)
		if errors.Is(err, portfolio.ErrInvestmentNotFound) {
			return c.fail("No investment with id %s", id)
		}
		if err != nil {
			return c.fail("Failed to update investment: %v", err)
		}
		fmt.Fprintf(c.stdout, "Updated investment %s\n", inv.ID)
		return subcommands.ExitSuccess
	})
}

type removeCmd struct {
	*env
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "delete an investment" }
func (*removeCmd) Usage() string {
	return `coinfolio remove <id>

  Deletes the investment. Removing an unknown id does nothing.
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		_, existed := a.Portfolio.FindInvestmentByID(id)
		if err := a.Portfolio.RemoveInvestment(ctx, id); err != nil {
			return c.fail("Failed to remove investment: %v", err)
		}
		if existed {
			fmt.Fprintf(c.stdout, "Removed investment %s\n", id)
		} else {
			fmt.Fprintf(c.stdout, "No investment with id %s, nothing removed\n", id)
		}
		return subcommands.ExitSuccess
	})
}

type showCmd struct {
	*env
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display one investment with its valuation" }
func (*showCmd) Usage() string {
	return `coinfolio show <id>
`
}

func (*showCmd) SetFlags(*flag.FlagSet) {}

func (c *showCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		for _, v := range a.Portfolio.InvestmentsWithCalculations() {
			if v.ID == id {
				fmt.Fprint(c.stdout, formatInvestmentDetail(v, a.Config.QuoteCurrency))
				return subcommands.ExitSuccess
			}
		}
		return c.fail("No investment with id %s", id)
	})
}

type listCmd struct {
	*env
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "display all investments with valuations and totals" }
func (*listCmd) Usage() string {
	return `coinfolio list

  Values use the last refreshed prices. Run refresh first for current figures.
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		fmt.Fprint(c.stdout, formatInvestments(
			a.Portfolio.InvestmentsWithCalculations(),
			a.Portfolio.Totals(),
			a.Portfolio.Status(),
			a.Config.QuoteCurrency,
		))
		return subcommands.ExitSuccess
	})
}

type summaryCmd struct {
	*env
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display portfolio totals" }
func (*summaryCmd) Usage() string {
	return `coinfolio summary
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withApp(func(a *app.App) subcommands.ExitStatus {
		fmt.Fprint(c.stdout, formatTotals(a.Portfolio.Totals(), a.Portfolio.Status(), a.Config.QuoteCurrency))
		return subcommands.ExitSuccess
	})
}
