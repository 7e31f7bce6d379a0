package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/journal"
	"github.com/matzehuels/patchcanvas/pkg/patch"
	"github.com/matzehuels/patchcanvas/pkg/patch/remote"
	"github.com/matzehuels/patchcanvas/pkg/scenario"
	"github.com/matzehuels/patchcanvas/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr string // listen address; the config's server.addr when empty
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [scenario.toml]",
		Short: "Serve a live canvas over HTTP",
		Long: `Serve replays a scenario, keeps its runtime ticking and exposes the
canvas read-only over HTTP. With a Redis URL configured, runtime changes are
published and changes from other editors on the same channel trigger a
resynchronization.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runServe(ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: server.addr from config)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path string, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg := c.cfg()
	if opts.addr == "" {
		opts.addr = cfg.Server.Addr
	}

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	j, err := c.openJournal(ctx)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	res, err := scenario.Replay(s, scenario.Options{
		Config:    cfg.Canvas(),
		Logger:    logger,
		Observers: []canvas.Observer{journal.NewRecorder(ctx, j, logger)},
	})
	if res != nil {
		defer res.Close()
	}
	if err != nil {
		return err
	}

	hooks, restore := installHooks(logger)
	defer restore()

	store := server.NewStore()
	store.Publish(res.Canvas.Snapshot())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(res.Runtime.Run(ctx, cfg.Backend.TickInterval.Std()))
	})

	if url := cfg.Backend.RedisURL; url != "" {
		if err := c.startBridge(ctx, g, url, cfg.Backend.Channel, res.Runtime, res.Canvas.Tasks()); err != nil {
			return err
		}
	}

	srv := server.New(store, logger)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, opts.addr, func(a net.Addr) {
			printSuccess("Serving %s", StyleLink.Render("http://"+a.String()))
			printDetail("Stop with Ctrl+C")
		})
	})

	g.Go(func() error {
		return ignoreCanceled(uiLoop(ctx, res.Canvas, store))
	})

	err = g.Wait()
	printInfo("Handled %d runtime events", hooks.events.Load())
	return err
}

// uiLoop is the single goroutine that touches the canvas. It drains queued
// runtime work and publishes a fresh snapshot whenever something ran.
func uiLoop(ctx context.Context, c *canvas.Canvas, store *server.Store) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Tasks().Ready():
			if c.Drain() > 0 {
				store.Publish(c.Snapshot())
			}
		}
	}
}

// startBridge connects rt to the Redis channel. Local events are published;
// remote events are queued as hints for the UI goroutine.
func (c *CLI) startBridge(ctx context.Context, g *errgroup.Group, url, channel string, rt patch.Notifier, tasks *canvas.TaskQueue) error {
	logger := loggerFromContext(ctx)
	client, err := remote.Dial(ctx, url)
	if err != nil {
		return err
	}
	pub, err := remote.NewPublisher(client, channel, logger)
	if err != nil {
		client.Close()
		return err
	}
	lis, err := remote.NewListener(client, channel, pub.Source(), logger)
	if err != nil {
		client.Close()
		return err
	}
	printInfo("Bridging events on %s", StyleHighlight.Render(channel))

	g.Go(func() error { return pub.Forward(ctx, rt) })
	g.Go(func() error { return lis.Listen(ctx, tasks.PostEvent) })
	g.Go(func() error {
		<-ctx.Done()
		return client.Close()
	})
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
