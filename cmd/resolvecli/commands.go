package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli"
	"resolvecache/internal/server"
)

var resolveCommand = cli.Command{
	Name:      "resolve",
	Usage:     "Resolve one or more keys through the cache.",
	ArgsUsage: "key [key...]",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "json",
			Usage: "Print the results as JSON.",
		},
	},
	Action: resolve,
}

func resolve(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.ShowCommandHelp(ctx, "resolve")
	}

	ctxc, cancel := getContext(ctx)
	defer cancel()
	client := getClient(ctx)

	results := make([]server.ResolveResponse, 0, ctx.NArg())
	for _, key := range ctx.Args() {
		value, err := client.Resolve(ctxc, key)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", key, err)
		}

		results = append(results, server.ResolveResponse{
			Key: key, Value: value,
		})
	}

	if ctx.Bool("json") {
		return printJSON(ctx.App.Writer, results)
	}

	for _, res := range results {
		_, _ = fmt.Fprintf(ctx.App.Writer, "%s\t%s\n", res.Key, res.Value)
	}

	return nil
}

var statsCommand = cli.Command{
	Name:  "stats",
	Usage: "Show the cache statistics.",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "json",
			Usage: "Print the statistics as JSON.",
		},
	},
	Action: stats,
}

func stats(ctx *cli.Context) error {
	ctxc, cancel := getContext(ctx)
	defer cancel()

	resp, err := getClient(ctx).Stats(ctxc)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(ctx.App.Writer, resp)
	}

	printStatsTable(ctx.App.Writer, resp)

	return nil
}

func printStatsTable(w io.Writer, s *server.StatsResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Statistic", "Value"})
	t.AppendRows([]table.Row{
		{"Requests", s.Requests},
		{"Hits", s.Hits},
		{"Misses", s.Misses},
		{"Evictions", s.Evictions},
		{"Entries", s.Entries},
		{"Hit rate", fmt.Sprintf("%.2f%%", s.HitRate)},
		{"Avg lookup", fmt.Sprintf("%.3f ms", s.AvgLookupTimeMs)},
	})
	t.Render()
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", b)

	return err
}
