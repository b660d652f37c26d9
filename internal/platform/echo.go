package platform

// echoTracker matches map state notifications against requests this
// process made, since X delivers them asynchronously.
type echoTracker struct {
	pending map[WindowID][]bool
}

func newEchoTracker() *echoTracker {
	return &echoTracker{pending: make(map[WindowID][]bool)}
}

// expect records that a notification with the given state will follow.
func (e *echoTracker) expect(win WindowID, visible bool) {
	e.pending[win] = append(e.pending[win], visible)
}

// match consumes the oldest expectation for win. It reports true when the
// notification is the echo of a request made here. A mismatch means someone
// else changed the window in between, so all expectations are dropped.
func (e *echoTracker) match(win WindowID, visible bool) bool {
	queue := e.pending[win]
	if len(queue) == 0 {
		return false
	}
	if queue[0] != visible {
		delete(e.pending, win)
		return false
	}
	if len(queue) == 1 {
		delete(e.pending, win)
	} else {
		e.pending[win] = queue[1:]
	}
	return true
}

func (e *echoTracker) forget(win WindowID) {
	delete(e.pending, win)
}
