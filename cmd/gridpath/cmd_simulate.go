package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pdrpinto/gridpath"
	"github.com/pdrpinto/gridpath/internal/agent"
	"github.com/pdrpinto/gridpath/internal/config"
	"github.com/pdrpinto/gridpath/internal/diag"
)

type simulateFlags struct {
	ticks    int
	dt       float64
	interval time.Duration
	serve    string
	trace    bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	flags := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Move the configured agents along planned paths",
		Long: `Every configured agent requests a path through one shared serializer.
Each frame the serializer gets a budget of serializer.steps_per_tick cell
evaluations, then every agent walks towards its next waypoint.

With --serve, diagnostics (/grid, /grid.txt, /metrics, /ws/completions) stay
up after the simulation ends until the process is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return runSimulate(cmd.Context(), cfg, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().IntVar(&flags.ticks, "ticks", 600, "maximum number of frames")
	cmd.Flags().Float64Var(&flags.dt, "dt", 1.0/30, "simulated seconds per frame")
	cmd.Flags().DurationVar(&flags.interval, "frame-interval", 0, "wall time between frames (0 runs unthrottled)")
	cmd.Flags().StringVar(&flags.serve, "serve", "", "serve diagnostics on this address, e.g. 127.0.0.1:8080")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "print serializer spans to stderr")
	return cmd
}

func runSimulate(ctx context.Context, cfg config.Config, flags *simulateFlags, out, errOut io.Writer) error {
	logger := cfg.Logger()
	grid, err := cfg.BuildGrid()
	if err != nil {
		return err
	}
	tracer, shutdown, err := newTracer(flags.trace, errOut)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	options := []gridpath.Option{
		gridpath.WithLogger(logger),
		gridpath.WithTracer(tracer),
		gridpath.WithStepsPerTick(cfg.Serializer.StepsPerTick),
	}
	var server *diag.Server
	if flags.serve != "" {
		server = diag.NewServer(grid, logger)
		options = append(options, gridpath.WithCompletionHook(server.Publish))
	}
	serializer := gridpath.NewSerializer(grid, options...)

	group, groupCtx := errgroup.WithContext(ctx)
	if server != nil {
		group.Go(func() error { return server.ListenAndServe(groupCtx, flags.serve) })
	}
	group.Go(func() error {
		err := simulate(groupCtx, serializer, cfg.Serializer.StepsPerTick, cfg.Agents, flags, out, logger)
		if err != nil {
			return err
		}
		if server != nil {
			<-groupCtx.Done()
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// simulate drives the serializer and every follower from a single goroutine,
// so completion handlers and Advance never race.
func simulate(
	ctx context.Context,
	serializer *gridpath.Serializer,
	stepsPerTick int,
	agents []config.AgentConfig,
	flags *simulateFlags,
	out io.Writer,
	logger *slog.Logger,
) error {
	followers := make([]*agent.Follower, len(agents))
	resolved := make([]bool, len(agents))
	unresolved := len(agents)
	for i, a := range agents {
		follower := agent.NewFollower(a.Name, a.Start, a.Speed, logger)
		followers[i] = follower
		serializer.EnqueueContext(ctx, a.Start, a.Target, func(waypoints []r3.Vec, success bool) {
			follower.OnPath(waypoints, success)
			resolved[i] = true
			unresolved--
		})
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if flags.interval > 0 {
		pace = rate.NewLimiter(rate.Every(flags.interval), 1)
	}

	frame := 0
	for ; frame < flags.ticks; frame++ {
		if err := pace.Wait(ctx); err != nil {
			return err
		}
		serializer.Tick(stepsPerTick)
		moving := false
		for _, f := range followers {
			if f.Advance(flags.dt) {
				moving = true
			}
		}
		if unresolved == 0 && !moving {
			frame++
			break
		}
	}

	fmt.Fprintf(out, "%d frames, %.2fs simulated\n", frame, float64(frame)*flags.dt)
	for i, f := range followers {
		switch {
		case !resolved[i]:
			fmt.Fprintf(out, "%s: waiting for a path at %.2f, %.2f\n", f.Name, f.Position.X, f.Position.Z)
		case f.Failed():
			fmt.Fprintf(out, "%s: no path, idle at %.2f, %.2f\n", f.Name, f.Position.X, f.Position.Z)
		case f.Done():
			fmt.Fprintf(out, "%s: arrived at %.2f, %.2f\n", f.Name, f.Position.X, f.Position.Z)
		default:
			fmt.Fprintf(out, "%s: en route at %.2f, %.2f, %d waypoints left\n",
				f.Name, f.Position.X, f.Position.Z, len(f.Remaining()))
		}
	}
	return nil
}
