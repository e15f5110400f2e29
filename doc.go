// Package gridpath provides grid-based A* pathfinding for agents moving over a
// discretized 2D world, plus a single-flight request serializer.
//
// It exposes three main entry points:
//
//   - FindPath: run a search to completion and get a Result.
//   - Stepper: iterate a search one cell evaluation at a time, for frame-stepped
//     simulations that must interleave other work between steps.
//   - Serializer: queue path requests from any number of callers and run them
//     one at a time, delivering each result through a completion handler.
//
// The world is laid out on the X/Z plane (Y is height). A Grid is built once from
// world bounds and a traversability predicate and is read-only afterwards, except
// for per-search scratch fields that only the in-flight search may touch.
package gridpath
