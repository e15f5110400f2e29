// Package agent moves an entity along waypoint paths delivered by the path
// serializer.
package agent

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"
)

// Follower walks a waypoint sequence in order at a fixed speed.
type Follower struct {
	Name     string
	Position r3.Vec
	Speed    float64 // world units per second

	path   []r3.Vec
	index  int
	failed bool
	logger *slog.Logger
}

// NewFollower places a follower at position.
func NewFollower(name string, position r3.Vec, speed float64, logger *slog.Logger) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{Name: name, Position: position, Speed: speed, logger: logger}
}

// OnPath accepts a completed path request. A successful result replaces the
// current path and restarts following from its first waypoint; a failure
// leaves the follower idle where it is.
func (f *Follower) OnPath(waypoints []r3.Vec, success bool) {
	if !success {
		f.failed = true
		f.path, f.index = nil, 0
		f.logger.Info("no path, idling", "agent", f.Name, "position", f.Position)
		return
	}
	f.failed = false
	f.path = append(f.path[:0], waypoints...)
	f.index = 0
	f.logger.Debug("following new path", "agent", f.Name, "waypoints", len(waypoints))
}

// Advance moves towards the current waypoint by at most Speed*dt, moving on
// to the next waypoint whenever one is reached. It reports whether the
// follower still has waypoints ahead.
func (f *Follower) Advance(dt float64) bool {
	budget := f.Speed * dt
	for f.index < len(f.path) && budget > 0 {
		target := f.path[f.index]
		offset := r3.Sub(target, f.Position)
		distance := r3.Norm(offset)
		if distance <= budget {
			f.Position = target
			budget -= distance
			f.index++
			continue
		}
		f.Position = r3.Add(f.Position, r3.Scale(budget/distance, offset))
		budget = 0
	}
	return f.index < len(f.path)
}

// Done reports whether every waypoint has been reached.
func (f *Follower) Done() bool { return f.index >= len(f.path) }

// Failed reports whether the last path request found no path.
func (f *Follower) Failed() bool { return f.failed }

// Remaining returns the waypoints not yet reached.
func (f *Follower) Remaining() []r3.Vec {
	return append([]r3.Vec(nil), f.path[f.index:]...)
}
