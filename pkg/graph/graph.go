// Package graph runs a process function over a set of nodes with bounded
// concurrency. A node starts only after all of its dependencies completed.
package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrUnsolvable = errors.New("graph: unsolvable graph")
)

type done struct {
	id  int
	err error
}

type work struct {
	id   int
	ctx  context.Context
	done chan done
}

type ProcessFunc func(ctx context.Context, id int) error

type Graph struct {
	Concurrency int
	Nodes       map[int][]int
	Process     ProcessFunc
	Logger      *slog.Logger

	wg        *sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	inFlight  map[int]bool
	completed map[int]bool
	work      chan work
	err       error
	done      chan done
}

// Independent returns nodes 0..n-1 without dependencies.
func Independent(n int) map[int][]int {
	nodes := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		nodes[i] = nil
	}
	return nodes
}

func (g *Graph) init(ctx context.Context) {
	if g.Concurrency <= 0 {
		g.Concurrency = 1
	}
	if g.Logger == nil {
		g.Logger = slog.Default()
	}
	g.err = nil
	g.completed = map[int]bool{}
	g.inFlight = map[int]bool{}
	g.work = make(chan work, g.Concurrency)
	// One slot per node: workers must never block on reporting.
	g.done = make(chan done, len(g.Nodes))
	g.wg = &sync.WaitGroup{}
	g.ctx, g.cancel = context.WithCancel(ctx)
}

// Solve processes every node and returns the first error. Once a node fails
// no further work is started and the context passed to running work is
// cancelled.
func (g *Graph) Solve(ctx context.Context) error {
	if len(g.Nodes) == 0 {
		return nil
	}
	g.init(ctx)
	defer g.cancel()

	g.wg.Add(g.Concurrency)
	for i := 0; i < g.Concurrency; i++ {
		go worker(i, g.Logger, g.Process, g.wg, g.work)
	}
	err := g.pump(ctx)
	g.wg.Wait()
	close(g.done)
	return err
}

// Worker processes individual items from the work queue.
func worker(i int, logger *slog.Logger, process ProcessFunc, wg *sync.WaitGroup, work chan work) {
	logger.Debug("graph: worker starting", "worker", i)
	defer logger.Debug("graph: worker stopping", "worker", i)
	defer wg.Done()

	for w := range work {
		err := process(w.ctx, w.id)
		w.done <- done{id: w.id, err: err}
	}
}

// Reads from done channel and pumps work into the work channel. This function
// sets state on the graph object.
func (g *Graph) pump(ctx context.Context) error {
	defer close(g.work)

	// Prime the initial channel with work to be done. Block when sending work
	// here as we need to get something into the initial channels or else we'll
	// hit deadlock.
	if !g.sendWork(true) {
		return ErrUnsolvable
	}

	cancelled := ctx.Done()
	for !g.finished() || g.working() {
		select {
		case d := <-g.done:
			g.complete(d.id)

			if d.err != nil {
				g.Logger.Debug("graph: work failed", "node", d.id, "error", d.err)
				g.errored(d.err)
			}

			if !g.finished() {
				sent := g.sendWork(false)
				// Unsolvable case: no in flight processing and no new work
				// sent to the queue. A circular dependency must exist.
				if !sent && !g.working() {
					return ErrUnsolvable
				}
			}
		case <-cancelled:
			g.Logger.Debug("graph: context cancelled, waiting for workers")
			g.errored(ctx.Err())
			cancelled = nil
		}
	}
	return g.err
}

// Errored records the first error and cancels all work.
func (g *Graph) errored(err error) {
	if g.err == nil {
		g.err = err
	}
	g.cancel()
}

func (g *Graph) working() bool {
	return len(g.inFlight) > 0
}

func (g *Graph) finished() bool {
	return g.err != nil || len(g.completed) >= len(g.Nodes)
}

// Complete a set of work marking it done and not in flight.
func (g *Graph) complete(id int) {
	g.completed[id] = true
	delete(g.inFlight, id)
}

// SendWork pushes work into the work channel. If block is set to true it will
// block and push all ready work into the channel. If block is false it returns
// as soon as the channel blocks.
func (g *Graph) sendWork(block bool) (sent bool) {
	for id := range g.Nodes {
		if g.ready(id) {
			if block {
				g.work <- work{id: id, ctx: g.ctx, done: g.done}
			} else {
				select {
				case g.work <- work{id: id, ctx: g.ctx, done: g.done}:
				default:
					return
				}
			}

			g.inFlight[id] = true
			sent = true
		}
	}
	return
}

// Ready returns whether work can be started on.
func (g *Graph) ready(id int) bool {
	if g.inFlight[id] {
		return false
	}
	if g.completed[id] {
		return false
	}
	for _, dep := range g.Nodes[id] {
		if !g.completed[dep] {
			return false
		}
	}
	return true // All dependencies are completed.
}
