package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/journal"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
)

// replayOpts holds the command-line flags for the replay command.
type replayOpts struct {
	check  bool // verify the scenario's expectations
	asJSON bool // print the final snapshot as JSON
	noGrid bool // disable grid snapping for this run
}

// replayCommand creates the replay command.
func (c *CLI) replayCommand() *cobra.Command {
	var opts replayOpts

	cmd := &cobra.Command{
		Use:   "replay [scenario.toml]",
		Short: "Replay a scripted editing session",
		Long: `Replay seeds an in-memory runtime from a scenario file, runs its steps
against a fresh canvas and prints the result. Mutations are recorded to the
configured journal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runReplay(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.check, "check", false, "fail when the scenario's expectations are not met")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the final canvas as JSON")
	cmd.Flags().BoolVar(&opts.noGrid, "no-grid", false, "disable grid snapping")

	return cmd
}

func (c *CLI) runReplay(ctx context.Context, w io.Writer, path string, opts replayOpts) error {
	logger := loggerFromContext(ctx)

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	j, err := c.openJournal(ctx)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	rec := journal.NewRecorder(ctx, j, logger)

	cfg := c.cfg().Canvas()
	if opts.noGrid {
		cfg.GridEnabled = false
	}

	name := s.Name
	if name == "" {
		name = path
	}
	sopts := scenario.Options{
		Config:    cfg,
		Logger:    logger,
		Observers: []canvas.Observer{rec},
	}
	// JSON output stays machine-readable.
	spinner := newSpinner(ctx, os.Stderr, "Replaying "+name)
	if !opts.asJSON {
		sopts.Progress = spinner.Progress
		spinner.Start()
	}

	prog := newProgress(logger)
	res, err := scenario.Replay(s, sopts)
	if res != nil {
		defer res.Close()
	}
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Replayed %d steps", res.Steps))

	snap := res.Canvas.Snapshot()
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
	} else {
		printSuccess("Replayed %s", name)
		printStats(len(snap.Nodes), len(snap.Edges), len(snap.Selection), snap.State)
		fmt.Fprintln(w, nodeTable(snap, res.Names, -1))
		fmt.Fprint(w, edgeLines(snap, res.Names))
	}

	if n := rec.Failed(); n > 0 {
		printWarning("%d mutations were not journaled", n)
	}

	if opts.check {
		if err := res.Check(); err != nil {
			printError("Expectations not met")
			return err
		}
		printSuccess("Expectations met")
	}

	if !opts.asJSON {
		printNewline()
		printNextStep("Render it", fmt.Sprintf("%s render %s", appName, path))
	}
	return nil
}

// writeJSONFile writes v as indented JSON to path.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
