package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/render/nodelink"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
)

// Output formats for the render command.
const (
	formatSVG  = "svg"
	formatDOT  = "dot"
	formatJSON = "json"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string // output file path; derived from the scenario when empty
	format      string // svg, dot or json
	detailed    bool   // label nodes with class and handle
	hidePending bool   // omit connections still being drawn
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: formatSVG}

	cmd := &cobra.Command{
		Use:   "render [scenario.toml]",
		Short: "Render a scenario's final canvas",
		Long: `Render replays a scenario and writes the resulting canvas. Nodes keep
their canvas positions; edges are drawn as straight lines between iolets.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.format = strings.ToLower(opts.format)
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			if opts.output == "" {
				opts.output = outputPath(args[0], opts.format)
			}
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runRender(ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: scenario name with format extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, dot, json")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with class and handle")
	cmd.Flags().BoolVar(&opts.hidePending, "hide-pending", false, "omit pending connections")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	spinner := newSpinner(ctx, os.Stderr, "Replaying "+filepath.Base(path))
	spinner.Start()
	res, err := scenario.Replay(s, scenario.Options{
		Config:   c.cfg().Canvas(),
		Logger:   logger,
		Progress: spinner.Progress,
	})
	if res != nil {
		defer res.Close()
	}
	if err != nil {
		spinner.StopWithError("Replay failed")
		return err
	}
	snap := res.Canvas.Snapshot()

	spinner.SetLabel(fmt.Sprintf("Rendering %d nodes as %s", len(snap.Nodes), opts.format))

	nodeOpts := nodelink.Options{Detailed: opts.detailed, HidePending: opts.hidePending}
	switch opts.format {
	case formatJSON:
		err = writeJSONFile(opts.output, snap)
	case formatDOT:
		err = os.WriteFile(opts.output, []byte(nodelink.ToDOT(snap, nodeOpts)), 0o644)
	default:
		var svg []byte
		svg, err = nodelink.Render(ctx, snap, nodeOpts)
		if err == nil {
			err = os.WriteFile(opts.output, svg, 0o644)
		}
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render %s: %w", opts.format, err)
	}

	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d nodes", len(snap.Nodes)))
	printFile(opts.output)
	return nil
}

func validateFormat(f string) error {
	switch f {
	case formatSVG, formatDOT, formatJSON:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want svg, dot or json)", f)
}

// outputPath derives the output file from the scenario path.
func outputPath(input, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return base + "." + format
}
