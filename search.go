package gridpath

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoPath is returned by FindPath when the open set drains before the target is reached.
	ErrNoPath = errors.New("no path found")
	// ErrSearchSuperseded is returned by Stepper.Step after another search started on the same grid.
	ErrSearchSuperseded = errors.New("search superseded by a newer search on the same grid")
)

// Result contains the outcome of a search
type Result struct {
	// Waypoints are the world positions of the turn points, ending at the target.
	// Empty when the start and target share a cell or no path exists.
	Waypoints []r3.Vec
	// Path is every cell from the start (excluded) to the target (included).
	Path          []GridCoord
	TotalCost     int
	ExpandedCells int
	Found         bool
}

// Options defines parameters shared by searches and the serializer.
type Options struct {
	Logger         *slog.Logger
	Tracer         trace.Tracer
	StepsPerTick   int
	CompletionHook func(Completion)
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(options *Options) { options.Logger = logger }
}

// WithTracer sets the tracer used for per-request spans. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(options *Options) { options.Tracer = tracer }
}

// WithStepsPerTick bounds how many cells the serializer's worker evaluates per
// tick before yielding. Zero or less runs each search to completion in one tick.
func WithStepsPerTick(steps int) Option {
	return func(options *Options) { options.StepsPerTick = steps }
}

// WithCompletionHook registers an observer called after every request's handler.
func WithCompletionHook(hook func(Completion)) Option {
	return func(options *Options) { options.CompletionHook = hook }
}

func applyOptions(options []Option) Options {
	searchOptions := Options{}
	for _, option := range options {
		option(&searchOptions)
	}
	if searchOptions.Logger == nil {
		searchOptions.Logger = slog.Default()
	}
	if searchOptions.Tracer == nil {
		searchOptions.Tracer = otel.Tracer("github.com/pdrpinto/gridpath")
	}
	return searchOptions
}

// FindPath runs an A* search from start to target to completion. It fails with
// ErrNoPath when the target is unreachable and with the context's error when
// ctx is cancelled between steps.
//
// FindPath must not run concurrently with any other search on the same grid;
// use a Serializer when requests come from several callers.
func FindPath(
	contextObject context.Context,
	grid *Grid,
	start r3.Vec,
	target r3.Vec,
	options ...Option,
) (Result, error) {
	stepper := NewStepper(grid, start, target, options...)
	_, span := stepper.options.Tracer.Start(contextObject, "FindPath",
		trace.WithAttributes(
			attribute.Float64Slice("gridpath.start", []float64{start.X, start.Y, start.Z}),
			attribute.Float64Slice("gridpath.target", []float64{target.X, target.Y, target.Z}),
		),
	)
	defer span.End()

	for {
		if err := contextObject.Err(); err != nil {
			span.RecordError(err)
			return Result{Waypoints: []r3.Vec{}}, err
		}
		snapshot, err := stepper.Step()
		if err != nil {
			span.RecordError(err)
			return Result{Waypoints: []r3.Vec{}}, err
		}
		if snapshot.Done {
			break
		}
	}

	result := stepper.Result()
	span.SetAttributes(
		attribute.Bool("gridpath.found", result.Found),
		attribute.Int("gridpath.total_cost", result.TotalCost),
		attribute.Int("gridpath.expanded_cells", result.ExpandedCells),
	)
	if !result.Found {
		return result, ErrNoPath
	}
	return result, nil
}
