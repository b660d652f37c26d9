package daemon

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startLoop(t *testing.T, l *Loop) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)
	return stop
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := NewLoop(time.Millisecond, nil, discardLogger())
	startLoop(t, l)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if !l.Post(func() { order = append(order, i) }) {
			t.Fatalf("Post failed")
		}
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("order = %v, want [0 1 2]", order)
	}
}

func TestLoop_TicksFramesWhileRequested(t *testing.T) {
	var remaining, calls int
	frame := func(time.Time) bool {
		if remaining == 0 {
			return false
		}
		remaining--
		calls++
		return remaining > 0
	}
	l := NewLoop(time.Millisecond, frame, discardLogger())
	startLoop(t, l)

	if err := l.Do(context.Background(), func() { remaining = 3 }); err != nil {
		t.Fatalf("Do: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var left int
		if err := l.Do(context.Background(), func() { left = remaining }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if left == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("frames did not finish, %d left", left)
		}
		time.Sleep(time.Millisecond)
	}

	var got int
	if err := l.Do(context.Background(), func() { got = calls }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 3 {
		t.Fatalf("frame calls = %d, want 3", got)
	}
}

func TestLoop_RecoversFromPanics(t *testing.T) {
	l := NewLoop(time.Millisecond, nil, discardLogger())
	startLoop(t, l)

	l.Post(func() { panic("boom") })

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
	if !ran {
		t.Fatalf("task after panic did not run")
	}
}

func TestLoop_Stopped(t *testing.T) {
	l := NewLoop(time.Millisecond, nil, discardLogger())
	stop := startLoop(t, l)
	stop()

	if l.Post(func() {}) {
		t.Fatalf("Post must fail after the loop stopped")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Do error = %v, want ErrLoopStopped", err)
	}
}
