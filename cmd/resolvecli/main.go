package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli"
	"resolvecache/internal/server"
)

const (
	defaultRPCHostPort = "127.0.0.1:8053"
	defaultTimeout     = 5 * time.Second
)

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[resolvecli] %v\n", err)
	os.Exit(1)
}

// getClient returns a client for the daemon named by the global flags.
func getClient(ctx *cli.Context) *server.Client {
	return server.NewClient(ctx.GlobalString("rpcserver"), &http.Client{
		Timeout: ctx.GlobalDuration("timeout"),
	})
}

// getContext returns a context bounded by the global timeout.
func getContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(
		context.Background(), ctx.GlobalDuration("timeout"),
	)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "resolvecli"
	app.Usage = "query a running resolvecached"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: defaultRPCHostPort,
			Usage: "The host:port of the resolvecached HTTP API.",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: defaultTimeout,
			Usage: "How long to wait for the daemon to answer.",
		},
	}
	app.Commands = []cli.Command{
		resolveCommand,
		statsCommand,
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}
