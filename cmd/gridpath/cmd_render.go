package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdrpinto/gridpath"
	"github.com/pdrpinto/gridpath/internal/diag"
)

type renderFlags struct {
	from, to string
	steps    int
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the grid as ASCII",
		Long: `Prints the lattice top row first: '#' blocked, '.' free.

With --from and --to, a search is stepped on the grid: 'S' and 'G' mark the
start and target cells, '*' the retraced path once found, and 'o' the open
frontier when --steps stops the search early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.from, "from", "", "start point as x,z")
	cmd.Flags().StringVar(&flags.to, "to", "", "target point as x,z")
	cmd.Flags().IntVar(&flags.steps, "steps", 0, "stop the search after this many cell evaluations (0 runs it to completion)")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, flags *renderFlags) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	grid, err := cfg.BuildGrid()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flags.from == "" {
		_, err := fmt.Fprint(out, diag.Render(grid.Snapshot(), nil))
		return err
	}

	start, err := parseXZ(flags.from)
	if err != nil {
		return err
	}
	target, err := parseXZ(flags.to)
	if err != nil {
		return err
	}

	stepper := gridpath.NewStepper(grid, start, target, gridpath.WithLogger(cfg.Logger()))
	var snapshot gridpath.StepSnapshot
	for !stepper.Done() && (flags.steps <= 0 || snapshot.StepIndex < flags.steps) {
		if snapshot, err = stepper.Step(); err != nil {
			return err
		}
	}

	marks := make(map[gridpath.GridCoord]byte)
	if !stepper.Done() {
		for _, c := range stepper.Frontier() {
			marks[c] = 'o'
		}
	}
	marks[stepper.Start()] = 'S'
	marks[stepper.Target()] = 'G'
	if _, err := fmt.Fprint(out, diag.Render(grid.Snapshot(), marks)); err != nil {
		return err
	}

	switch {
	case !stepper.Done():
		fmt.Fprintf(out, "stopped after %d steps: %d open, %d closed\n",
			snapshot.StepIndex, snapshot.OpenCount, snapshot.ClosedCount)
	case stepper.Result().Found:
		fmt.Fprintf(out, "found: cost %d, %d cells expanded\n",
			stepper.Result().TotalCost, stepper.Result().ExpandedCells)
	default:
		fmt.Fprintf(out, "no path: %d cells expanded\n", stepper.Result().ExpandedCells)
	}
	return nil
}
