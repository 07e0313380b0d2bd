package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/app"
)

// env carries what every command needs: where to write and how to open the
// App. The App is opened per command so commands like version never touch
// storage.
type env struct {
	stdout io.Writer
	stderr io.Writer
	open   func() (*app.App, error)
}

// withApp opens the App, runs fn and closes the App again.
func (e *env) withApp(fn func(a *app.App) subcommands.ExitStatus) subcommands.ExitStatus {
	a, err := e.open()
	if err != nil {
		fmt.Fprintf(e.stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	return fn(a)
}

func (e *env) fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// register adds every coinfolio command to the commander.
func register(c *subcommands.Commander, e *env) {
	c.Register(&addCmd{env: e}, "investments")
	c.Register(&updateCmd{env: e}, "investments")
	c.Register(&removeCmd{env: e}, "investments")
	c.Register(&showCmd{env: e}, "investments")
	c.Register(&listCmd{env: e}, "investments")
	c.Register(&summaryCmd{env: e}, "investments")

	c.Register(&refreshCmd{env: e}, "prices")
	c.Register(&watchCmd{env: e}, "prices")

	c.Register(&searchCmd{env: e}, "assets")
	c.Register(&assetsCmd{env: e}, "assets")

	c.Register(&versionCmd{env: e}, "")
}

// setFlags reports which flags were given on the command line.
func setFlags(f *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}
