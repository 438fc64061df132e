package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}

	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop.
//
// args:
//
// - interval: sleep before starting next task.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop.
//
// args:
//
// - err: If you break loop with error, set non nil value.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task run in loop.
//
// args:
//
// - context.Context: (sub-)context which is passed to each run of the task.
//
// - T: value carried over from the previous run.
type Task[T any] func(context.Context, T) (T, Next)

// Start task in loop.
//
// Task should return 2 values.
//
// - T : any value the task needs to carry to its next run.
// It can be a cursor, statistics, or the last result.
//
// - Next: Continue(time.Duration) or Break(error).
// To run one more time, return Continue(interval); the task is called again
// with the new T after at most interval (can be 0).
// When done, return Break(error) (nil error = normal termination).
// Zero value (Next{}) equals Continue(0), that is, "go next ASAP!".
//
// Example -- reconcile until the context is closed, poking on events:
//
//	wake := make(chan struct{}, 1)
//	_, err := loop.Start(
//		ctx, cursor, task,
//		loop.WithWakeup(wake), loop.WithTimeout(30*time.Second),
//	)
//
// # Args
//
// - ctx : context. When this context get be done, loop will be broken with ctx.Err().
//
// - init : your task will be called as task(ctx, init) at the first time.
//
// - task : task receiving (context, last value), then returning (new value, Continue() or Break()).
//
// - options : options for loop. See WithTimeout and WithWakeup.
//
// # Returns
//
// - T: T task returns at last.
// This value is always returned wheather or not it returns non-nil error together.
//
// - error: error in Break(error). It is nil when loop breaks with Break(nil).
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		interval := 0 * time.Nanosecond

		lc := &loopConfig{ctx: ctx}
		for _, opt := range options {
			lc = opt(lc)
		}

		v, n := func() (T, Next) {
			ctx := lc.ctx
			if lc.deferred != nil {
				defer lc.deferred()
			}
			return task(ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		} else {
			value = v
			interval = n.interval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			// shutting down is priority. it should come first, and checking timer later.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()

		case <-lc.wakeup:
			// an external event wants the next run now. skip the rest of the interval.
			if !timer.Stop() {
				<-timer.C
			}
			continue

		case <-timer.C:
			continue
		}
	}
}

type loopConfig struct {
	ctx      context.Context
	wakeup   <-chan struct{}
	deferred func()
}

type LoopOption func(*loopConfig) *loopConfig

// set timeout per loop
//
// this timeout is set on context.Context passed to task.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		return &loopConfig{
			ctx:    ctx,
			wakeup: lc.wakeup,
			deferred: func() {
				if lc.deferred != nil {
					defer lc.deferred()
				}
				cancel()
			},
		}
	}
}

// let the loop be poked from outside.
//
// A receive on ch cuts the between-runs interval short, so that
// event sources (relation webhooks, drift audits) do not need to wait
// out the cooldown of a polling loop.
//
// ch should be buffered (size 1) and written with a non-blocking send;
// a poke while the task is running just causes one more run.
func WithWakeup(ch <-chan struct{}) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		lc.wakeup = ch
		return lc
	}
}
