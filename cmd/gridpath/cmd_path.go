package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pdrpinto/gridpath"
)

type pathFlags struct {
	from, to string
	format   string
	trace    bool
}

// point is a waypoint on the ground plane as printed by the CLI.
type point struct {
	X float64 `json:"x" yaml:"x"`
	Z float64 `json:"z" yaml:"z"`
}

type pathReport struct {
	Found         bool                 `json:"found" yaml:"found"`
	TotalCost     int                  `json:"total_cost" yaml:"total_cost"`
	ExpandedCells int                  `json:"expanded_cells" yaml:"expanded_cells"`
	Start         gridpath.GridCoord   `json:"start" yaml:"start"`
	Target        gridpath.GridCoord   `json:"target" yaml:"target"`
	Waypoints     []point              `json:"waypoints" yaml:"waypoints"`
	Cells         []gridpath.GridCoord `json:"cells" yaml:"cells"`
}

func newPathCmd(root *rootOptions) *cobra.Command {
	flags := &pathFlags{}
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Plan one path and print its waypoints",
		Long: `Plans a path between two world points on the configured grid and prints
the simplified waypoints, the retraced cells and the path cost.

Exits non-zero when the target is unreachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(cmd, root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.from, "from", "", "start point as x,z (required)")
	cmd.Flags().StringVar(&flags.to, "to", "", "target point as x,z (required)")
	cmd.Flags().StringVarP(&flags.format, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "print the search span to stderr")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runPath(cmd *cobra.Command, root *rootOptions, flags *pathFlags) error {
	start, err := parseXZ(flags.from)
	if err != nil {
		return err
	}
	target, err := parseXZ(flags.to)
	if err != nil {
		return err
	}
	cfg, err := root.load()
	if err != nil {
		return err
	}
	grid, err := cfg.BuildGrid()
	if err != nil {
		return err
	}
	tracer, shutdown, err := newTracer(flags.trace, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(cmd.Context()) }()

	result, searchErr := gridpath.FindPath(cmd.Context(), grid, start, target,
		gridpath.WithLogger(cfg.Logger()), gridpath.WithTracer(tracer))
	if searchErr != nil && !errors.Is(searchErr, gridpath.ErrNoPath) {
		return searchErr
	}

	report := pathReport{
		Found:         result.Found,
		TotalCost:     result.TotalCost,
		ExpandedCells: result.ExpandedCells,
		Start:         grid.CellFromWorldPoint(start).Coord(),
		Target:        grid.CellFromWorldPoint(target).Coord(),
		Waypoints:     make([]point, 0, len(result.Waypoints)),
		Cells:         result.Path,
	}
	for _, w := range result.Waypoints {
		report.Waypoints = append(report.Waypoints, point{X: w.X, Z: w.Z})
	}
	if err := writeReport(cmd.OutOrStdout(), flags.format, report); err != nil {
		return err
	}
	if searchErr != nil {
		return fmt.Errorf("%s -> %s: %w", flags.from, flags.to, searchErr)
	}
	return nil
}

func writeReport(w io.Writer, format string, report pathReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report)
	case "text", "":
		if !report.Found {
			_, err := fmt.Fprintf(w, "no path from cell %v to cell %v (%d cells expanded)\n",
				report.Start, report.Target, report.ExpandedCells)
			return err
		}
		fmt.Fprintf(w, "cost %d, %d cells, %d expanded\n",
			report.TotalCost, len(report.Cells), report.ExpandedCells)
		for i, p := range report.Waypoints {
			fmt.Fprintf(w, "%d: %.2f, %.2f\n", i, p.X, p.Z)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
