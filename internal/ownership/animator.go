package ownership

import "time"

// EasingFunc maps linear progress in [0,1] onto eased progress in [0,1].
type EasingFunc func(t float64) float64

// EaseSmoothstep accelerates at the start and decelerates at the end.
var EaseSmoothstep EasingFunc = func(t float64) float64 {
	return t * t * (3.0 - 2.0*t)
}

// UserSwitchAnimator cross-fades the windows of the previous user into the
// windows of the new user. It is driven by Step calls from an external frame
// ticker and calls its completion callback exactly once, unless cancelled.
type UserSwitchAnimator struct {
	from     UserID
	to       UserID
	outgoing map[SurfaceID]struct{}
	incoming map[SurfaceID]struct{}

	duration time.Duration
	easing   EasingFunc
	start    time.Time
	started  bool
	finished bool
	canceled bool

	fade     func(s SurfaceID, opacity float64)
	complete func(a *UserSwitchAnimator)
}

// NewUserSwitchAnimator prepares an animation between two sets of surfaces.
// fade may be nil when the host cannot change opacity.
func NewUserSwitchAnimator(from, to UserID, outgoing, incoming []SurfaceID, duration time.Duration, fade func(SurfaceID, float64), complete func(*UserSwitchAnimator)) *UserSwitchAnimator {
	a := &UserSwitchAnimator{
		from:     from,
		to:       to,
		outgoing: make(map[SurfaceID]struct{}, len(outgoing)),
		incoming: make(map[SurfaceID]struct{}, len(incoming)),
		duration: duration,
		easing:   EaseSmoothstep,
		fade:     fade,
		complete: complete,
	}
	for _, s := range outgoing {
		a.outgoing[s] = struct{}{}
	}
	for _, s := range incoming {
		a.incoming[s] = struct{}{}
	}
	return a
}

// Start begins the animation at now. A zero duration finishes immediately.
func (a *UserSwitchAnimator) Start(now time.Time) {
	if a.started {
		return
	}
	a.started = true
	a.start = now
	if a.duration <= 0 {
		a.finish()
		return
	}
	a.apply(0)
}

// Step advances the animation to now.
func (a *UserSwitchAnimator) Step(now time.Time) {
	if !a.Running() {
		return
	}
	elapsed := now.Sub(a.start)
	if elapsed >= a.duration {
		a.apply(1)
		a.finish()
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	a.apply(float64(elapsed) / float64(a.duration))
}

func (a *UserSwitchAnimator) apply(progress float64) {
	if a.fade == nil {
		return
	}
	eased := a.easing(progress)
	for s := range a.outgoing {
		if _, stays := a.incoming[s]; stays {
			continue
		}
		a.fade(s, 1-eased)
	}
	for s := range a.incoming {
		if _, stays := a.outgoing[s]; stays {
			continue
		}
		a.fade(s, eased)
	}
}

func (a *UserSwitchAnimator) finish() {
	if a.finished || a.canceled {
		return
	}
	a.finished = true
	if a.complete != nil {
		a.complete(a)
	}
}

// Cancel stops the animation. The completion callback will never run.
func (a *UserSwitchAnimator) Cancel() {
	a.canceled = true
}

// Running reports whether the animation has started and neither finished
// nor been cancelled.
func (a *UserSwitchAnimator) Running() bool {
	return a.started && !a.finished && !a.canceled
}

// Forget removes a destroyed surface from both working sets.
func (a *UserSwitchAnimator) Forget(s SurfaceID) {
	delete(a.outgoing, s)
	delete(a.incoming, s)
}

// From returns the user being switched away from.
func (a *UserSwitchAnimator) From() UserID { return a.from }

// To returns the user being switched to.
func (a *UserSwitchAnimator) To() UserID { return a.to }

// Outgoing returns the surfaces that were visible for the previous user.
func (a *UserSwitchAnimator) Outgoing() []SurfaceID {
	return setToSorted(a.outgoing)
}

// Incoming returns the surfaces that should be visible for the new user.
func (a *UserSwitchAnimator) Incoming() []SurfaceID {
	return setToSorted(a.incoming)
}

// Contains reports whether s is part of either working set.
func (a *UserSwitchAnimator) Contains(s SurfaceID) bool {
	_, out := a.outgoing[s]
	_, in := a.incoming[s]
	return out || in
}

func setToSorted(m map[SurfaceID]struct{}) []SurfaceID {
	out := make([]SurfaceID, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sortSurfaces(out)
	return out
}
