package gridpath

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/spatial/r3"
)

// CompletionHandler receives a request's waypoints and whether a path was found.
// It is called exactly once per request, on the goroutine driving the serializer.
// It may call Enqueue. Tick and Drain called while a handler runs return
// without stepping; the driver that invoked the handler picks up the new work.
type CompletionHandler func(waypoints []r3.Vec, success bool)

// Completion describes a finished request for observers registered with
// WithCompletionHook.
type Completion struct {
	RequestID     uuid.UUID     `json:"request_id"`
	Start         r3.Vec        `json:"start"`
	Target        r3.Vec        `json:"target"`
	Waypoints     []r3.Vec      `json:"waypoints"`
	Success       bool          `json:"success"`
	TotalCost     int           `json:"total_cost"`
	ExpandedCells int           `json:"expanded_cells"`
	Waited        time.Duration `json:"waited"`
	Searched      time.Duration `json:"searched"`
}

type pathRequest struct {
	id         uuid.UUID
	parent     trace.SpanContext
	start      r3.Vec
	target     r3.Vec
	handler    CompletionHandler
	enqueuedAt time.Time
}

type inflightSearch struct {
	request   *pathRequest
	stepper   *Stepper
	span      trace.Span
	startedAt time.Time
}

// Serializer queues path requests and runs them against one grid strictly one
// at a time, in arrival order. Enqueue is safe from any goroutine, including
// from inside a completion handler. Searches advance only when the serializer
// is driven by Tick, Drain or Run.
type Serializer struct {
	grid           *Grid
	options        Options
	stepperOptions []Option

	mu      sync.Mutex
	queue   []*pathRequest
	current *inflightSearch

	// tickMu serializes drivers so only one goroutine steps the in-flight search.
	tickMu    sync.Mutex
	inHandler atomic.Bool
	wake      chan struct{}
}

// NewSerializer creates a serializer bound to grid. Create one per grid and
// share it with every caller that needs paths on that grid.
func NewSerializer(grid *Grid, options ...Option) *Serializer {
	return &Serializer{
		grid:           grid,
		options:        applyOptions(options),
		stepperOptions: options,
		wake:           make(chan struct{}, 1),
	}
}

// Enqueue appends a request and starts its search right away if the engine is idle.
func (s *Serializer) Enqueue(start, target r3.Vec, handler CompletionHandler) uuid.UUID {
	return s.EnqueueContext(context.Background(), start, target, handler)
}

// EnqueueContext is Enqueue with the request's search span parented to the
// span in ctx. ctx is not used for cancellation.
func (s *Serializer) EnqueueContext(
	contextObject context.Context,
	start, target r3.Vec,
	handler CompletionHandler,
) uuid.UUID {
	request := &pathRequest{
		id:         uuid.New(),
		parent:     trace.SpanContextFromContext(contextObject),
		start:      start,
		target:     target,
		handler:    handler,
		enqueuedAt: time.Now(),
	}

	s.mu.Lock()
	s.queue = append(s.queue, request)
	queueDepth.Inc()
	s.dispatchLocked()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.options.Logger.Debug("path request enqueued", "request_id", request.id, "start", start, "target", target)
	return request.id
}

// Pending is the number of requests queued behind the in-flight search.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Busy reports whether a search is in flight or requests are waiting.
func (s *Serializer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil || len(s.queue) > 0
}

// dispatchLocked starts the next queued search when none is in flight.
// s.mu must be held.
func (s *Serializer) dispatchLocked() {
	if s.current != nil || len(s.queue) == 0 {
		return
	}
	request := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	queueDepth.Dec()

	now := time.Now()
	queueWait.Observe(now.Sub(request.enqueuedAt).Seconds())

	parent := trace.ContextWithSpanContext(context.Background(), request.parent)
	_, span := s.options.Tracer.Start(parent, "Serializer.search",
		trace.WithAttributes(
			attribute.String("gridpath.request_id", request.id.String()),
			attribute.Float64Slice("gridpath.start", []float64{request.start.X, request.start.Y, request.start.Z}),
			attribute.Float64Slice("gridpath.target", []float64{request.target.X, request.target.Y, request.target.Z}),
		),
	)

	s.current = &inflightSearch{
		request:   request,
		stepper:   NewStepper(s.grid, request.start, request.target, s.stepperOptions...),
		span:      span,
		startedAt: now,
	}
	s.options.Logger.Debug("path search dispatched",
		"request_id", request.id,
		"start_cell", s.current.stepper.Start(),
		"target_cell", s.current.stepper.Target(),
		"pending", len(s.queue))
}

// complete delivers the in-flight result to its handler, then marks the engine
// idle and dispatches the next request. The handler runs without s.mu held.
func (s *Serializer) complete(inflight *inflightSearch, stepErr error) {
	defer func() {
		s.mu.Lock()
		s.current = nil
		s.dispatchLocked()
		s.mu.Unlock()
	}()

	request := inflight.request
	result := inflight.stepper.Result()
	success := stepErr == nil && result.Found
	waypoints := result.Waypoints
	if !success || waypoints == nil {
		waypoints = []r3.Vec{}
	}
	searched := time.Since(inflight.startedAt)

	outcome := outcomeFound
	switch {
	case stepErr != nil:
		outcome = outcomeSuperseded
		inflight.span.RecordError(stepErr)
		inflight.span.SetStatus(codes.Error, stepErr.Error())
		s.options.Logger.Warn("path search aborted", "request_id", request.id, "err", stepErr)
	case !result.Found:
		outcome = outcomeNoPath
		inflight.span.AddEvent("no_path")
		s.options.Logger.Info("no path found",
			"request_id", request.id, "start", request.start, "target", request.target,
			"expanded", result.ExpandedCells)
	default:
		s.options.Logger.Debug("path found",
			"request_id", request.id, "waypoints", len(waypoints),
			"cost", result.TotalCost, "expanded", result.ExpandedCells, "elapsed", searched)
	}
	requestsTotal.WithLabelValues(outcome).Inc()
	searchDuration.Observe(searched.Seconds())
	expandedCells.Observe(float64(result.ExpandedCells))
	inflight.span.SetAttributes(
		attribute.Bool("gridpath.success", success),
		attribute.Int("gridpath.total_cost", result.TotalCost),
		attribute.Int("gridpath.expanded_cells", result.ExpandedCells),
		attribute.Int("gridpath.waypoints", len(waypoints)),
	)
	inflight.span.End()

	s.inHandler.Store(true)
	defer s.inHandler.Store(false)
	if request.handler != nil {
		request.handler(waypoints, success)
	}
	if s.options.CompletionHook != nil {
		s.options.CompletionHook(Completion{
			RequestID:     request.id,
			Start:         request.start,
			Target:        request.target,
			Waypoints:     waypoints,
			Success:       success,
			TotalCost:     result.TotalCost,
			ExpandedCells: result.ExpandedCells,
			Waited:        inflight.startedAt.Sub(request.enqueuedAt),
			Searched:      searched,
		})
	}
}
