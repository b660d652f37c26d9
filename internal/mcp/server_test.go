package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/1broseidon/multidesk/internal/ipc"
)

type fakeDaemon struct {
	status     ipc.StatusData
	windows    []ipc.WindowInfo
	owners     map[uint32]string
	visible    []string
	shownFor   string
	followed   bool
	switchedTo string
	err        error
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		status: ipc.StatusData{ActiveUser: "alice", Users: []string{"alice", "bob"}, Mode: "separated", WindowCount: 2, OwnedCount: 1},
		windows: []ipc.WindowInfo{
			{ID: 0x3a00007, Instance: "xterm", Class: "XTerm", Owner: "alice", PresentedTo: "alice", State: "visible", Visible: true},
			{ID: 0x3c00002, Instance: "Navigator", Class: "firefox", State: "visible", Visible: true, TransientFor: 0x3a00007},
		},
		owners:  map[uint32]string{0x3a00007: "alice"},
		visible: []string{"alice"},
	}
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	return &st, nil
}

func (f *fakeDaemon) ListWindows() ([]ipc.WindowInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.windows, nil
}

func (f *fakeDaemon) GetOwner(window uint32) (*ipc.OwnerData, error) {
	if f.err != nil {
		return nil, f.err
	}
	owner := f.owners[window]
	return &ipc.OwnerData{Window: window, Owner: owner, PresentedTo: owner, OnActiveDesktop: owner == "" || owner == f.status.ActiveUser}, nil
}

func (f *fakeDaemon) SetOwner(window uint32, user string) error {
	if f.err != nil {
		return f.err
	}
	if existing := f.owners[window]; existing != "" && existing != user {
		return errors.New("window already owned")
	}
	f.owners[window] = user
	return nil
}

func (f *fakeDaemon) ShowForUser(window uint32, user string, follow bool) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.shownFor = user
	f.followed = follow
	return true, nil
}

func (f *fakeDaemon) SwitchUser(user string) error {
	if f.err != nil {
		return f.err
	}
	f.switchedTo = user
	f.status.ActiveUser = user
	return nil
}

func (f *fakeDaemon) VisibleOwners() (*ipc.VisibleOwnersData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.VisibleOwnersData{ActiveUser: f.status.ActiveUser, Owners: f.visible}, nil
}

func newTestServer(d DaemonClient) *Server {
	return NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(newFakeDaemon())

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if out.ActiveUser != "alice" || out.Mode != "separated" || out.WindowCount != 2 {
		t.Fatalf("unexpected status %+v", out)
	}
	if len(out.VisibleOwners) != 1 || out.VisibleOwners[0] != "alice" {
		t.Fatalf("visible owners = %v", out.VisibleOwners)
	}
}

func TestHandleListWindows_Filters(t *testing.T) {
	s := newTestServer(newFakeDaemon())

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if len(out.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(out.Windows))
	}
	if out.Windows[0].Window != "0x3a00007" {
		t.Fatalf("window id = %q, want hex", out.Windows[0].Window)
	}
	if out.Windows[1].TransientFor != "0x3a00007" {
		t.Fatalf("transient_for = %q", out.Windows[1].TransientFor)
	}

	_, out, _ = s.handleListWindows(context.Background(), nil, ListWindowsInput{Owner: "alice"})
	if len(out.Windows) != 1 || out.Windows[0].Class != "XTerm" {
		t.Fatalf("owner filter: %+v", out.Windows)
	}

	_, out, _ = s.handleListWindows(context.Background(), nil, ListWindowsInput{Class: "navigator"})
	if len(out.Windows) != 1 || out.Windows[0].Class != "firefox" {
		t.Fatalf("class filter: %+v", out.Windows)
	}
}

func TestHandleWindowOwner(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)

	_, got, err := s.handleGetWindowOwner(context.Background(), nil, WindowInput{Window: "0x3a00007"})
	if err != nil {
		t.Fatalf("handleGetWindowOwner: %v", err)
	}
	if got.Owner != "alice" || !got.OnActiveDesktop {
		t.Fatalf("unexpected owner %+v", got)
	}

	if _, _, err := s.handleGetWindowOwner(context.Background(), nil, WindowInput{Window: "nope"}); err == nil {
		t.Fatalf("expected parse error")
	}

	// Decimal ids are accepted too.
	_, set, err := s.handleSetWindowOwner(context.Background(), nil, SetWindowOwnerInput{Window: "62914562", User: "bob"})
	if err != nil {
		t.Fatalf("handleSetWindowOwner: %v", err)
	}
	if set.Window != "0x3c00002" || d.owners[0x3c00002] != "bob" {
		t.Fatalf("unexpected set result %+v owners=%v", set, d.owners)
	}

	if _, _, err := s.handleSetWindowOwner(context.Background(), nil, SetWindowOwnerInput{Window: "0x3a00007", User: "bob"}); err == nil || !strings.Contains(err.Error(), "already owned") {
		t.Fatalf("expected already owned error, got %v", err)
	}
	if _, _, err := s.handleSetWindowOwner(context.Background(), nil, SetWindowOwnerInput{Window: "0x1"}); err == nil {
		t.Fatalf("expected missing user error")
	}
}

func TestHandleShowWindowForUser(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)

	_, out, err := s.handleShowWindowForUser(context.Background(), nil, ShowWindowForUserInput{Window: "0x3a00007", User: "bob", Follow: true})
	if err != nil {
		t.Fatalf("handleShowWindowForUser: %v", err)
	}
	if !out.Shown || d.shownFor != "bob" || !d.followed {
		t.Fatalf("unexpected show %+v daemon=%+v", out, d)
	}
}

func TestHandleSwitchUser(t *testing.T) {
	d := newFakeDaemon()
	s := newTestServer(d)

	_, out, err := s.handleSwitchUser(context.Background(), nil, SwitchUserInput{User: "bob"})
	if err != nil {
		t.Fatalf("handleSwitchUser: %v", err)
	}
	if out.PreviousUser != "alice" || out.ActiveUser != "bob" || d.switchedTo != "bob" {
		t.Fatalf("unexpected switch %+v", out)
	}
	if _, _, err := s.handleSwitchUser(context.Background(), nil, SwitchUserInput{}); err == nil {
		t.Fatalf("expected error for empty user")
	}
}

func TestHandleGetVisibleOwners(t *testing.T) {
	d := newFakeDaemon()
	d.visible = nil
	s := newTestServer(d)

	_, out, err := s.handleGetVisibleOwners(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetVisibleOwners: %v", err)
	}
	if out.Owners == nil || len(out.Owners) != 0 || out.ActiveUser != "alice" {
		t.Fatalf("unexpected visible owners %+v", out)
	}
}

func TestHandlers_PropagateDaemonErrors(t *testing.T) {
	d := newFakeDaemon()
	d.err = errors.New("daemon not running")
	s := newTestServer(d)

	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil {
		t.Fatalf("expected status error")
	}
	if _, _, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{}); err == nil {
		t.Fatalf("expected list error")
	}
	if _, _, err := s.handleSwitchUser(context.Background(), nil, SwitchUserInput{User: "bob"}); err == nil {
		t.Fatalf("expected switch error")
	}
}
