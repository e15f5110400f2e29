package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pdrpinto/gridpath/internal/config"
)

const tracerName = "github.com/pdrpinto/gridpath/cmd/gridpath"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "gridpath",
		Short: "Grid pathfinding with A*, waypoint simplification and a single-flight request queue",
		Long: `gridpath discretizes a rectangular world into square cells, plans paths
between world points with A*, and reduces each path to its turning points.

Examples:
  gridpath path --from -9.5,-9.5 --to 5,3          # plan one path on the default world
  gridpath render --config world.yaml              # print the lattice
  gridpath simulate --config world.yaml --serve :8080`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"YAML scenario file (defaults apply when empty; GRIDPATH_* env vars override)")

	rootCmd.AddCommand(
		newPathCmd(opts),
		newRenderCmd(opts),
		newSimulateCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// parseXZ parses "x,z" into a world point on the ground plane.
func parseXZ(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return r3.Vec{}, fmt.Errorf("point %q: want x,z", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("point %q: x: %w", s, err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("point %q: z: %w", s, err)
	}
	return r3.Vec{X: x, Z: z}, nil
}

// newTracer returns a tracer exporting spans to w, and its shutdown func.
// When enabled is false it returns nil and a no-op shutdown, leaving the
// library on the global provider.
func newTracer(enabled bool, w io.Writer) (trace.Tracer, func(context.Context) error, error) {
	if !enabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return provider.Tracer(tracerName), provider.Shutdown, nil
}
