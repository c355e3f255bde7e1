// Package comm provides the collective operations used by distributed
// bases: sums over all ranks, all-to-all exchange and barriers.
//
// World is an in-process implementation where every rank is a goroutine.
// Every collective must be called by all ranks in the same order; a rank
// that leaves early blocks the others until their context is done.
package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/diaggo/internal/errs"
)

// Communicator is the view of one rank on a group of ranks.
type Communicator interface {
	// Rank is the zero-based id of this rank.
	Rank() int
	// Size is the number of ranks.
	Size() int
	// Barrier returns once all ranks called it.
	Barrier(ctx context.Context) error
	// AllreduceSum returns the sum of x over all ranks. Every rank gets the
	// bit-identical result.
	AllreduceSum(ctx context.Context, x float64) (float64, error)
	// AlltoallAny sends send[r] to rank r and returns the values received,
	// indexed by source rank. len(send) must equal Size.
	AlltoallAny(ctx context.Context, send []any) ([]any, error)
}

// Alltoall is the typed form of Communicator.AlltoallAny. send[r] is the
// batch for rank r; the result holds the batch received from each rank.
func Alltoall[T any](ctx context.Context, c Communicator, send [][]T) ([][]T, error) {
	if len(send) != c.Size() {
		return nil, fmt.Errorf("comm: alltoall with %d batches on %d ranks: %w", len(send), c.Size(), errs.ErrInvalidArgument)
	}
	boxed := make([]any, len(send))
	for r, b := range send {
		boxed[r] = b
	}
	got, err := c.AlltoallAny(ctx, boxed)
	if err != nil {
		return nil, err
	}
	recv := make([][]T, len(got))
	for r, v := range got {
		b, ok := v.([]T)
		if !ok && v != nil {
			return nil, fmt.Errorf("comm: rank %d sent %T: %w", r, v, errs.ErrInvalidArgument)
		}
		recv[r] = b
	}
	return recv, nil
}

// World is a group of in-process ranks.
type World struct {
	size int

	mu  sync.Mutex
	cur *round
}

// round collects one contribution per rank. done is closed once all ranks
// contributed; vals is read-only afterwards.
type round struct {
	vals    []any
	arrived int
	done    chan struct{}
}

func newRound(size int) *round {
	return &round{vals: make([]any, size), done: make(chan struct{})}
}

// NewWorld returns a world of size ranks.
func NewWorld(size int) (*World, error) {
	if size < 1 {
		return nil, fmt.Errorf("comm: world size %d: %w", size, errs.ErrInvalidArgument)
	}
	return &World{size: size, cur: newRound(size)}, nil
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Rank returns the communicator of rank r.
func (w *World) Rank(r int) Communicator {
	return &rank{world: w, rank: r}
}

// gather deposits v for rank r and waits for the contributions of all
// ranks.
func (w *World) gather(ctx context.Context, r int, v any) ([]any, error) {
	w.mu.Lock()
	rd := w.cur
	rd.vals[r] = v
	rd.arrived++
	if rd.arrived == w.size {
		w.cur = newRound(w.size)
		close(rd.done)
	}
	w.mu.Unlock()

	select {
	case <-rd.done:
		return rd.vals, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type rank struct {
	world *World
	rank  int
}

func (c *rank) Rank() int { return c.rank }

func (c *rank) Size() int { return c.world.size }

func (c *rank) Barrier(ctx context.Context) error {
	_, err := c.world.gather(ctx, c.rank, nil)
	return err
}

func (c *rank) AllreduceSum(ctx context.Context, x float64) (float64, error) {
	vals, err := c.world.gather(ctx, c.rank, x)
	if err != nil {
		return 0, err
	}
	// rank order keeps the sum identical on every rank
	var s float64
	for _, v := range vals {
		s += v.(float64)
	}
	return s, nil
}

func (c *rank) AlltoallAny(ctx context.Context, send []any) ([]any, error) {
	if len(send) != c.world.size {
		return nil, fmt.Errorf("comm: alltoall with %d batches on %d ranks: %w", len(send), c.world.size, errs.ErrInvalidArgument)
	}
	vals, err := c.world.gather(ctx, c.rank, send)
	if err != nil {
		return nil, err
	}
	recv := make([]any, c.world.size)
	for src, v := range vals {
		recv[src] = v.([]any)[c.rank]
	}
	return recv, nil
}

// Run starts size ranks of a fresh world, each running fn in its own
// goroutine, and waits for all of them. The first error cancels the
// context of the others.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Communicator) error) error {
	w, err := NewWorld(size)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for r := range size {
		c := w.Rank(r)
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("comm: rank %d: %w", r, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Self is a single-rank communicator whose collectives return immediately.
type Self struct{}

func (Self) Rank() int { return 0 }

func (Self) Size() int { return 1 }

func (Self) Barrier(ctx context.Context) error { return ctx.Err() }

func (Self) AllreduceSum(ctx context.Context, x float64) (float64, error) {
	return x, ctx.Err()
}

func (Self) AlltoallAny(ctx context.Context, send []any) ([]any, error) {
	if len(send) != 1 {
		return nil, fmt.Errorf("comm: alltoall with %d batches on 1 rank: %w", len(send), errs.ErrInvalidArgument)
	}
	return send, ctx.Err()
}
