package controller

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
	"github.com/danboyne/acorn/internal/pathfinder"
)

// countingScratch tracks how many times it was handed out, so a test can
// assert one Scratch is reused across many tasks rather than allocated fresh
// per task.
type countingScratch struct {
	id int
}

func (countingScratch) Reset() {}

type scratchCountingPathfinder struct {
	nextID int32
}

func (p *scratchCountingPathfinder) NewScratch(*grid.Grid) pathfinder.Scratch {
	id := atomic.AddInt32(&p.nextID, 1)
	return countingScratch{id: int(id)}
}

func (p *scratchCountingPathfinder) FindPath(_ context.Context, req pathfinder.Request) (pathfinder.Result, error) {
	s := req.Scratch.(countingScratch)
	return pathfinder.Result{
		Path:          []grid.Point{req.Start, req.End},
		Cost:          float64(s.id), // smuggle which scratch instance served this task out through Cost
		ExploredCells: 1,
	}, nil
}

func TestWorkerPoolRunCoversEveryTaskExactlyOnce(t *testing.T) {
	pf := &scratchCountingPathfinder{}
	g := grid.New(5, 5, 1)
	wp := newWorkerPool(pf, g, 4)

	tasks := make([]pathfindTask, 10)
	for i := range tasks {
		tasks[i] = pathfindTask{
			idx: i,
			net: netlist.NetID(i),
			req: pathfinder.Request{Start: grid.Point{X: 0, Y: 0, Z: 0}, End: grid.Point{X: i, Y: 0, Z: 0}},
		}
	}

	outcomes := wp.run(context.Background(), tasks)
	require.Len(t, outcomes, len(tasks))
	for i, o := range outcomes {
		assert.Equal(t, i, o.idx, "outcome slot must match its originating task index")
		assert.Equal(t, netlist.NetID(i), o.net)
		assert.NoError(t, o.err)
	}
}

func TestWorkerPoolReusesOneScratchPerWorkerNotPerTask(t *testing.T) {
	pf := &scratchCountingPathfinder{}
	g := grid.New(5, 5, 1)
	wp := newWorkerPool(pf, g, 2)

	tasks := make([]pathfindTask, 20)
	for i := range tasks {
		tasks[i] = pathfindTask{idx: i, net: netlist.NetID(i), req: pathfinder.Request{}}
	}

	outcomes := wp.run(context.Background(), tasks)

	seen := make(map[int]bool)
	for _, o := range outcomes {
		seen[int(o.result.Cost)] = true
	}
	// Exactly as many distinct scratch instances were handed out as workers
	// were spawned (2), regardless of the 20 tasks dispatched across them.
	assert.LessOrEqual(t, len(seen), 2)
}

func TestWorkerPoolHandlesFewerTasksThanWorkers(t *testing.T) {
	pf := &scratchCountingPathfinder{}
	g := grid.New(5, 5, 1)
	wp := newWorkerPool(pf, g, 8)

	tasks := []pathfindTask{{idx: 0, net: 0, req: pathfinder.Request{}}}
	outcomes := wp.run(context.Background(), tasks)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].err)
}

func TestWorkerPoolEmptyTaskListReturnsEmptyOutcomes(t *testing.T) {
	pf := &scratchCountingPathfinder{}
	g := grid.New(5, 5, 1)
	wp := newWorkerPool(pf, g, 4)

	outcomes := wp.run(context.Background(), nil)
	assert.Empty(t, outcomes)
}

func TestWorkerPoolPropagatesFindPathError(t *testing.T) {
	pf := &erroringPathfinder{}
	g := grid.New(5, 5, 1)
	wp := newWorkerPool(pf, g, 2)

	outcomes := wp.run(context.Background(), []pathfindTask{{idx: 0, net: 0, req: pathfinder.Request{}}})
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].err)
}

type erroringPathfinder struct{}

func (erroringPathfinder) NewScratch(*grid.Grid) pathfinder.Scratch { return fakeScratch{} }

func (erroringPathfinder) FindPath(_ context.Context, _ pathfinder.Request) (pathfinder.Result, error) {
	return pathfinder.Result{}, assert.AnError
}
