package astar

import "errors"

// errNoPath is returned when the open set is exhausted without reaching the
// destination. The controller treats this the same as a zero-cost result:
// an iteration-fatal condition per spec.md §4.2.
var errNoPath = errors.New("astar: no path found")
