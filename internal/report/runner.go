package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mercurio-pos/api/internal/domain"
)

// ErrStale is returned when a newer aggregation request started while
// this one was fetching. The caller should discard the run; the newer
// request owns the result.
var ErrStale = errors.New("aggregation superseded by a newer request")

// SaleSource provides the sale history for aggregation runs.
type SaleSource interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
}

// Runner serializes access to the latest aggregation result. Requests can
// overlap freely; each run takes a sequence number when it starts and only
// the run holding the newest number may publish its result. Slow fetches
// that lose the race fail with ErrStale instead of overwriting fresher data.
type Runner struct {
	source SaleSource
	loc    *time.Location
	clock  func() time.Time

	mu     sync.Mutex
	seq    uint64
	latest Result
	ready  bool
}

// NewRunner builds a runner anchored to loc. A nil clock defaults to
// time.Now.
func NewRunner(source SaleSource, loc *time.Location, clock func() time.Time) *Runner {
	if clock == nil {
		clock = time.Now
	}
	return &Runner{source: source, loc: loc, clock: clock}
}

// Run fetches the sale history, aggregates it under f, and publishes the
// result if no newer run started in the meantime.
func (r *Runner) Run(ctx context.Context, f Filter) (Result, error) {
	r.mu.Lock()
	r.seq++
	mine := r.seq
	r.mu.Unlock()

	sales, err := r.source.ListSales(ctx)
	if err != nil {
		return Result{}, err
	}

	res, err := Aggregate(sales, f, r.clock(), r.loc)
	if err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if mine != r.seq {
		return Result{}, ErrStale
	}
	r.latest = res
	r.ready = true
	return res, nil
}

// Latest returns the most recently published result, if any run has
// completed successfully.
func (r *Runner) Latest() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.ready
}
