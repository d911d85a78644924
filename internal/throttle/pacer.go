// Package throttle paces outbound sends so a tenant's queue drains at a
// fixed rate.
package throttle

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrStop, returned (or wrapped) by a Run job, ends the queue. That job is
// counted neither done nor failed and the remaining jobs are not attempted.
var ErrStop = errors.New("throttle: stop queue")

// Pacer spaces sends by a fixed gap measured from the end of one send to
// the start of the next. The first Wait returns at once. A Pacer is not
// safe for concurrent use.
type Pacer struct {
	every rate.Limit
	lim   *rate.Limiter
}

// NewPacer returns a Pacer for interval. A non-positive interval disables
// pacing.
func NewPacer(interval time.Duration) *Pacer {
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &Pacer{every: every, lim: rate.NewLimiter(every, 1)}
}

// Wait blocks until the next send may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// Rearm starts a full interval from now. Call it when a send finishes so
// a slow send does not eat into the gap before the next one.
func (p *Pacer) Rearm() {
	p.lim = rate.NewLimiter(p.every, 1)
	p.lim.Allow()
}

// Report summarizes a paced run.
type Report struct {
	Done   int
	Failed int
	Errors []error
}

// Run calls fn for jobs 0..n-1 in order. Between jobs it waits one full
// interval after the previous fn returned. A failing job is recorded and
// the queue continues, unless its error wraps ErrStop. Cancellation of ctx
// also stops the run early; the returned error is then ctx.Err().
func (p *Pacer) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) (Report, error) {
	var r Report
	for i := 0; i < n; i++ {
		if err := p.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r, ctxErr
			}
			// Wait would exceed the deadline.
			return r, errors.Join(context.DeadlineExceeded, err)
		}
		err := fn(ctx, i)
		p.Rearm()
		if errors.Is(err, ErrStop) {
			return r, err
		}
		if err != nil {
			r.Failed++
			r.Errors = append(r.Errors, err)
			continue
		}
		r.Done++
	}
	return r, nil
}
