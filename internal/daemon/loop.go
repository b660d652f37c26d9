package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrLoopStopped is returned by Do when the loop is no longer running.
var ErrLoopStopped = errors.New("daemon loop stopped")

// FrameFunc advances animations to now and reports whether another frame
// is needed.
type FrameFunc func(now time.Time) bool

// Loop runs every task that touches the ownership manager on one goroutine.
// X11 callbacks, IPC requests and timers post closures into it. While a
// frame function asks for more frames the loop also ticks it at a fixed
// interval.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	interval time.Duration
	frame    FrameFunc
	logger   *slog.Logger
}

// NewLoop creates a loop. frame may be nil when nothing animates.
func NewLoop(interval time.Duration, frame FrameFunc, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second / 60
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:    make(chan func(), 256),
		done:     make(chan struct{}),
		interval: interval,
		frame:    frame,
		logger:   logger,
	}
}

// Post queues fn. It returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled. Blocks.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			l.run(fn)
		case now := <-tick:
			if !l.runFrame(now) {
				stopTicker()
			}
			continue
		}

		// A task may have started an animation.
		if ticker == nil && l.frame != nil && l.runFrame(time.Now()) {
			ticker = time.NewTicker(l.interval)
			tick = ticker.C
		}
	}
}

func (l *Loop) run(fn func()) {
	// A panicking task must not take the daemon down.
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("daemon task panic recovered", "error", err)
		}
	}()
	fn()
}

func (l *Loop) runFrame(now time.Time) (more bool) {
	if l.frame == nil {
		return false
	}
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("animation frame panic recovered", "error", err)
			more = false
		}
	}()
	return l.frame(now)
}
