// Command coinfolio tracks cryptocurrency investments and their market value.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to coinfolio.toml (defaults to COINFOLIO_CONFIG, then coinfolio.toml beside the binary)")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	register(commander, &env{
		stdout: os.Stdout,
		stderr: os.Stderr,
		open:   func() (*app.App, error) { return app.NewApp(*configPath) },
	})

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
