package robot_arm

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
)

// DefaultTickRate is how often a Runner advances the value holders, in Hz.
const DefaultTickRate = 50

var errRunnerClosed = errors.New("arm state runner is closed")

// Runner is the only goroutine that touches its ArmState. Requests from other goroutines are
// queued with Do and run between ticks.
type Runner struct {
	state  *ArmState
	clk    clock.Clock
	period time.Duration
	logger logging.Logger

	requests chan func(*ArmState)

	cancelCtx  context.Context
	cancelFunc func()
	done       chan struct{}
	startOnce  sync.Once
	closeOnce  sync.Once
}

// NewRunner returns a stopped runner for state. A non-positive tickRate uses DefaultTickRate.
func NewRunner(state *ArmState, clk clock.Clock, tickRate int, logger logging.Logger) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &Runner{
		state:      state,
		clk:        clk,
		period:     time.Second / time.Duration(tickRate),
		logger:     logger,
		requests:   make(chan func(*ArmState)),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		done:       make(chan struct{}),
	}
}

// Start launches the loop. Calling it more than once has no effect.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		ticker := r.clk.Ticker(r.period)
		utils.PanicCapturingGo(func() {
			defer close(r.done)
			defer ticker.Stop()
			r.loop(ticker.C)
		})
	})
}

func (r *Runner) loop(ticks <-chan time.Time) {
	for {
		select {
		case <-r.cancelCtx.Done():
			return
		case fn := <-r.requests:
			fn(r.state)
		case <-ticks:
			r.state.Tick()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*ArmState)) error {
	finished := make(chan struct{})
	wrapped := func(s *ArmState) {
		defer close(finished)
		fn(s)
	}

	select {
	case r.requests <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.cancelCtx.Done():
		return errRunnerClosed
	}

	// Once accepted the request always runs to completion.
	<-finished
	return nil
}

// Close stops the loop and waits for it to exit.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.cancelFunc()
		// Keeps a later Start from launching the loop.
		r.startOnce.Do(func() { close(r.done) })
		<-r.done
		r.logger.Debug("arm state runner stopped")
	})
}
