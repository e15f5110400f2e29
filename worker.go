package gridpath

import "context"

// Tick advances the in-flight search by at most budget cell evaluations
// (budget <= 0 runs it to completion). When the search finishes its handler is
// called and the next queued request is dispatched. Tick reports whether work
// remains afterwards.
//
// Tick is the frame-stepped driver: call it once per frame to spread searches
// across frames. Concurrent Tick calls are serialized. Called while a
// completion handler runs, Tick steps nothing and only reports Busy.
func (s *Serializer) Tick(budget int) bool {
	if s.inHandler.Load() {
		return s.Busy()
	}
	return s.tick(budget)
}

func (s *Serializer) tick(budget int) bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	inflight := s.current
	s.mu.Unlock()
	if inflight == nil {
		return false
	}

	for steps := 0; budget <= 0 || steps < budget; steps++ {
		snapshot, err := inflight.stepper.Step()
		if err != nil {
			s.complete(inflight, err)
			return s.Busy()
		}
		if snapshot.Done {
			s.complete(inflight, nil)
			return s.Busy()
		}
	}
	return true
}

// Drain ticks until no search is in flight and the queue is empty, including
// requests enqueued by handlers along the way. While a completion handler
// runs it returns at once; the driver that invoked the handler drains the rest.
func (s *Serializer) Drain() {
	for !s.inHandler.Load() && s.tick(s.options.StepsPerTick) {
	}
}

// Run is the serializer's worker loop: it drains the queue whenever Enqueue
// wakes it and returns when ctx is done. One worker per serializer is enough;
// extra workers only contend on the driver lock. Run must not be called from a
// completion handler.
func (s *Serializer) Run(contextObject context.Context) error {
	s.options.Logger.Info("path serializer worker started",
		"grid_width", s.grid.Width(), "grid_height", s.grid.Height(),
		"steps_per_tick", s.options.StepsPerTick)
	defer s.options.Logger.Info("path serializer worker stopped")

	for {
		for s.tick(s.options.StepsPerTick) {
			if err := contextObject.Err(); err != nil {
				return err
			}
		}
		select {
		case <-contextObject.Done():
			return contextObject.Err()
		case <-s.wake:
		}
	}
}
