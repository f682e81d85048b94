// Package grid holds the environment snapshot the planner reasons about: a
// flat byte-cost occupancy grid, the start and goal poses bound to it, the
// environment constants, and obstacle deltas reported between cycles.
//
// Costs are bytes: CostFree (0) is free space, CostLethal (255) is an
// obstacle, and values in between are graduated traversal costs.
package grid
