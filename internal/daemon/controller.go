package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/multidesk/internal/ipc"
	"github.com/1broseidon/multidesk/internal/ownership"
	"github.com/1broseidon/multidesk/internal/platform"
)

const requestTimeout = 3 * time.Second

var _ ipc.Controller = (*Service)(nil)

var errRequestFailed = errors.New("daemon request failed")

// do runs fn on the service loop and waits for it.
func (s *Service) do(fn func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return s.loop.Do(ctx, fn)
}

// query runs fn on the service loop and hands its result back over a
// buffered channel, so a request that timed out never shares memory with
// a task the loop runs later.
func query[T any](s *Service, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	var zero T
	if err := s.do(func() {
		v, err := fn()
		ch <- result{v, err}
	}); err != nil {
		return zero, err
	}
	select {
	case r := <-ch:
		return r.v, r.err
	default:
		// fn panicked and the loop recovered it.
		return zero, errRequestFailed
	}
}

// Status summarizes the manager state.
func (s *Service) Status() (ipc.StatusData, error) {
	return query(s, func() (ipc.StatusData, error) {
		users := s.mgr.Users()
		st := ipc.StatusData{
			ActiveUser:       string(s.mgr.CurrentUser()),
			Users:            make([]string, 0, len(users)),
			Mode:             s.mgr.Mode().String(),
			AnimationSpeed:   s.cfg.AnimationSpeed().String(),
			AnimationRunning: s.mgr.IsAnimationRunning(),
			WindowCount:      len(s.windows.Windows()),
			OwnedCount:       len(s.mgr.Entries()),
			Shared:           s.mgr.AreWindowsSharedAmongUsers(),
		}
		for _, u := range users {
			st.Users = append(st.Users, string(u))
		}
		return st, nil
	})
}

// ListWindows describes every tracked window.
func (s *Service) ListWindows() ([]ipc.WindowInfo, error) {
	return query(s, func() ([]ipc.WindowInfo, error) {
		var out []ipc.WindowInfo
		for _, w := range s.windows.Windows() {
			out = append(out, s.windowInfo(w))
		}
		return out, nil
	})
}

func (s *Service) windowInfo(w platform.Window) ipc.WindowInfo {
	return ipc.WindowInfo{
		ID:           uint32(w.ID),
		Instance:     w.Instance,
		Class:        w.Class,
		Title:        w.Title,
		Owner:        string(s.mgr.GetWindowOwner(w.ID)),
		PresentedTo:  string(s.mgr.GetUserPresentingWindow(w.ID)),
		State:        s.mgr.State(w.ID).String(),
		Visible:      w.Visible,
		TransientFor: uint32(w.TransientFor),
	}
}

// GetOwner returns the owner of a tracked window.
func (s *Service) GetOwner(window uint32) (ipc.OwnerData, error) {
	return query(s, func() (ipc.OwnerData, error) {
		id := platform.WindowID(window)
		if err := s.checkWindow(id); err != nil {
			return ipc.OwnerData{}, err
		}
		return ipc.OwnerData{
			Window:          window,
			Owner:           string(s.mgr.GetWindowOwner(id)),
			PresentedTo:     string(s.mgr.GetUserPresentingWindow(id)),
			OnActiveDesktop: s.mgr.IsWindowOnDesktopOfUser(id, s.mgr.CurrentUser()),
		}, nil
	})
}

// SetOwner gives an unowned window a permanent owner.
func (s *Service) SetOwner(window uint32, user string) error {
	_, err := query(s, func() (struct{}, error) {
		id := platform.WindowID(window)
		if err := s.checkWindow(id); err != nil {
			return struct{}{}, err
		}
		if err := s.checkUser(user); err != nil {
			return struct{}{}, err
		}
		if owner := s.mgr.GetWindowOwner(id); owner != "" {
			if owner != ownership.UserID(user) {
				return struct{}{}, fmt.Errorf("window 0x%x is already owned by %s", window, owner)
			}
			return struct{}{}, nil
		}
		delete(s.pending, id)
		s.mgr.SetWindowOwner(id, ownership.UserID(user))
		return struct{}{}, nil
	})
	return err
}

// ShowForUser teleports an owned window to user's desktop and reports
// whether it moved. With follow the active user switches to user and the
// window is focused, moved or not.
func (s *Service) ShowForUser(window uint32, user string, follow bool) (bool, error) {
	return query(s, func() (bool, error) {
		id := platform.WindowID(window)
		if err := s.checkWindow(id); err != nil {
			return false, err
		}
		if err := s.checkUser(user); err != nil {
			return false, err
		}
		if s.mgr.GetWindowOwner(id) == "" {
			return false, fmt.Errorf("window 0x%x has no owner", window)
		}
		u := ownership.UserID(user)
		moved := s.mgr.ShowWindowForUser(id, u)
		if !follow {
			return moved, nil
		}
		s.mgr.ActiveUserChanged(u)
		if err := s.windows.Focus(id); err != nil {
			s.logger.Warn("failed to focus window", "window", id, "error", err)
		}
		return moved, nil
	})
}

// SwitchUser makes user active.
func (s *Service) SwitchUser(user string) error {
	_, err := query(s, func() (struct{}, error) {
		if err := s.checkUser(user); err != nil {
			return struct{}{}, err
		}
		s.mgr.ActiveUserChanged(ownership.UserID(user))
		return struct{}{}, nil
	})
	return err
}

// VisibleOwners reports what the notification hook last received.
func (s *Service) VisibleOwners() ipc.VisibleOwnersData {
	active, owners := s.blocker.Snapshot()
	data := ipc.VisibleOwnersData{ActiveUser: string(active), Owners: make([]string, 0, len(owners))}
	for _, u := range owners {
		data.Owners = append(data.Owners, string(u))
	}
	return data
}

// ShouldNotify consults the notification blocker.
func (s *Service) ShouldNotify(user string, popup bool) bool {
	if popup {
		return s.blocker.ShouldShowPopup(ownership.UserID(user))
	}
	return s.blocker.ShouldShow(ownership.UserID(user))
}

// Reload re-reads the config file and applies mode, speed, rules and users.
func (s *Service) Reload() error {
	if s.loadConfig == nil {
		return errors.New("reload is not supported")
	}
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	return s.do(func() { s.applyConfig(cfg) })
}

// ReconcileNow runs a reconciliation pass on the service loop and returns
// the number of vanished windows it dropped.
func (s *Service) ReconcileNow(ctx context.Context) (int, error) {
	ch := make(chan int, 1)
	if err := s.loop.Do(ctx, func() { ch <- s.reconcile() }); err != nil {
		return 0, err
	}
	select {
	case n := <-ch:
		return n, nil
	default:
		return 0, errRequestFailed
	}
}

func (s *Service) checkWindow(id platform.WindowID) error {
	if !s.windows.Tracked(id) {
		return fmt.Errorf("unknown window 0x%x", uint32(id))
	}
	return nil
}

func (s *Service) checkUser(user string) error {
	if user == "" {
		return errors.New("user is required")
	}
	if !knows(s.mgr.Users(), ownership.UserID(user)) {
		return fmt.Errorf("unknown user %q", user)
	}
	return nil
}

// RequestSwitch queues a switch to user without waiting for it. Hotkey
// callbacks use it so the X event goroutine never blocks on the loop.
func (s *Service) RequestSwitch(user string) {
	s.loop.Post(func() {
		if err := s.checkUser(user); err != nil {
			s.logger.Warn("ignoring switch request", "user", user, "error", err)
			return
		}
		s.mgr.ActiveUserChanged(ownership.UserID(user))
	})
}
