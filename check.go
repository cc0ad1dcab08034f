package main

import (
	"errors"
	"fmt"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [layout-file | run-id]",
	Short: "Validate a catalog and optionally a layout built from it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	stderr := cmd.ErrOrStderr()
	if len(loaded.Errors) > 0 {
		printFindings(stderr, loaded.Errors)
		return fmt.Errorf("%s: %d evaluation errors", path, len(loaded.Errors))
	}
	printFindings(stderr, loaded.Problems)

	failed := 0
	for _, p := range loaded.Problems {
		if p.Severity == catalog.SeverityError {
			failed++
		}
	}
	usable := len(loaded.Catalog.Usable())
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules, %d usable\n", path, loaded.Catalog.Len(), usable)
	if usable == 0 {
		return errors.New("catalog has no usable modules")
	}

	if len(args) == 0 {
		if failed > 0 {
			return fmt.Errorf("%s: %d catalog errors", path, failed)
		}
		return nil
	}

	sol, err := app.LoadSolution(cmd.Context(), args[0], loaded.Catalog)
	if err != nil {
		return err
	}
	result, err := app.Check(sol)
	printFindings(stderr, result.Errors)
	printFindings(stderr, result.Warnings)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%s: %d layout errors", args[0], len(result.Errors))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules, %d loops, ok\n", args[0], sol.Len(), len(sol.Loops()))
	if failed > 0 {
		return fmt.Errorf("%s: %d catalog errors", path, failed)
	}
	return nil
}
