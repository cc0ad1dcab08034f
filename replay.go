package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/chazu/warren/pkg/replay"
	"github.com/chazu/warren/pkg/scene"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <layout-file | run-id>",
	Short: "Rebuild a layout one module at a time",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().Duration("delay", 0, "pause between placements (minimum 10ms)")
	bindFlags(replayCmd, false, map[string]string{"delay": "playback.delay"})
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	loaded, err := app.LoadCatalog(app.Config().Catalog)
	if err != nil {
		return err
	}
	if len(loaded.Errors) > 0 {
		printFindings(cmd.ErrOrStderr(), loaded.Errors)
		return fmt.Errorf("%d evaluation errors", len(loaded.Errors))
	}
	sol, err := app.LoadSolution(cmd.Context(), args[0], loaded.Catalog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	container := scene.New(app.Kernel(), scene.WithLogger(app.logger))
	return replay.Play(ctx, sol, container, app.Config().Playback.Delay, func(s replay.Step) {
		p := s.Placement.Pose.Position
		fmt.Fprintf(out, "[%d/%d] %s at (%.2f, %.2f, %.2f)\n", s.Index+1, s.Total, s.Placement.ModuleName, p.X, p.Y, p.Z)
	})
}
