package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a dungeon layout",
	Long: `Generate loads the catalog, grows a layout of up to max-modules modules and
writes the configured outputs: a layout document, an STL mesh, a run archive
entry and a Prometheus textfile.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("out", "o", "", "write the layout document to this file")
	f.String("format", "json", "layout document format: json, yaml or toml")
	f.String("stl", "", "write a binary STL of the layout to this file")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	f.Bool("accept-starved", false, "accept layouts that run out of open connectors")
	f.Duration("timeout", 0, "abandon generation after this long (0 keeps the configured timeout)")
	f.Float64("depth-first", 0.80, "probability of extending the newest open connector")
	f.Float64("random", 0.95, "cumulative probability of picking a random open connector")

	bindFlags(generateCmd, false, map[string]string{
		"out":            "output.path",
		"format":         "output.format",
		"stl":            "output.stl",
		"metrics-file":   "metrics.file",
		"accept-starved": "accept_starved",
		"timeout":        "timeout",
		"depth-first":    "heuristics.depth_first",
		"random":         "heuristics.random",
	})
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	path := app.Config().Catalog
	loaded, err := app.LoadCatalog(path)
	if err != nil {
		return err
	}
	if len(loaded.Errors) > 0 {
		printFindings(cmd.ErrOrStderr(), loaded.Errors)
		return fmt.Errorf("%s: %d evaluation errors", path, len(loaded.Errors))
	}
	printFindings(cmd.ErrOrStderr(), loaded.Problems)

	res, err := app.Generate(cmd.Context(), loaded.Catalog, path)
	if err != nil {
		return err
	}
	printFindings(cmd.ErrOrStderr(), res.Warnings)

	sol := res.Solution
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seed %d: %d modules, %d loops, %d backtracks in %s\n",
		res.Seed, sol.Len(), len(sol.Loops()), sol.Stats.Backtracks, res.Elapsed.Round(time.Millisecond))
	if res.RunID != "" {
		fmt.Fprintf(out, "run %s\n", res.RunID)
	}
	return nil
}
