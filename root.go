package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/warren/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Assemble dungeons from connector-based modules",
	Long: `warren grows a dungeon layout from a catalog of module types. Modules are
joined at their connectors, never overlap, and the search backtracks when a
branch cannot be completed.

Settings come from warren.{toml,yaml,json}, WARREN_* environment variables
and flags, in rising precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./warren.{toml,yaml,json})")
	pf.String("catalog", "", "catalog file (.lisp, .wl, .toml, .yaml)")
	pf.Int("max-modules", 20, "maximum number of modules to place")
	pf.Int64("seed", 0, "generation seed (implies a fixed seed)")
	pf.String("kernel", config.KernelAnalytic, "geometry kernel: analytic or sdfx")
	pf.String("store", "", "SQLite run archive")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	bindFlags(rootCmd, true, map[string]string{
		"catalog":     "catalog",
		"max-modules": "max_modules",
		"seed":        "seed",
		"kernel":      "kernel",
		"store":       "store.path",
		"log-level":   "logging.level",
		"log-format":  "logging.format",
	})
}

// bindFlags binds cmd's flags to config keys.
func bindFlags(cmd *cobra.Command, persistent bool, keys map[string]string) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}
}

// newApp loads the configuration for cmd and builds the App.
func newApp(cmd *cobra.Command) (*App, error) {
	if cmd.Flags().Changed("seed") {
		v.Set("random_seed", false)
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, cfg.Logging.NewLogger(os.Stderr))
}

func printFindings[T error](w io.Writer, findings []T) {
	for _, f := range findings {
		fmt.Fprintln(w, f.Error())
	}
}
