package ipc

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeController struct {
	mu       sync.Mutex
	owners   map[uint32]string
	active   string
	reloads  int
	shownFor map[uint32]string
	followed bool
	stopped  bool
}

func newFakeController() *fakeController {
	return &fakeController{
		owners:   map[uint32]string{0x400001: "alice"},
		active:   "alice",
		shownFor: make(map[uint32]string),
	}
}

func (f *fakeController) Status() (StatusData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return StatusData{}, errors.New("loop stopped")
	}
	return StatusData{ActiveUser: f.active, Users: []string{"alice", "bob"}, Mode: "separated", WindowCount: len(f.owners)}, nil
}

func (f *fakeController) ListWindows() ([]WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil, errors.New("loop stopped")
	}
	return []WindowInfo{{ID: 0x400001, Class: "Firefox", Owner: "alice", State: "owned", Visible: true}}, nil
}

func (f *fakeController) GetOwner(window uint32) (OwnerData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[window]
	if !ok {
		return OwnerData{}, errors.New("unknown window")
	}
	return OwnerData{Window: window, Owner: owner, OnActiveDesktop: owner == f.active}, nil
}

func (f *fakeController) SetOwner(window uint32, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[window] = user
	return nil
}

func (f *fakeController) ShowForUser(window uint32, user string, follow bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.owners[window]; !ok {
		return false, errors.New("window has no owner")
	}
	f.shownFor[window] = user
	f.followed = follow
	return true, nil
}

func (f *fakeController) SwitchUser(user string) error {
	if user == "mallory" {
		return errors.New("unknown user")
	}
	f.mu.Lock()
	f.active = user
	f.mu.Unlock()
	return nil
}

func (f *fakeController) VisibleOwners() VisibleOwnersData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return VisibleOwnersData{ActiveUser: f.active, Owners: []string{"alice"}}
}

func (f *fakeController) ShouldNotify(user string, popup bool) bool {
	return user == "alice" && !popup
}

func (f *fakeController) Reload() error {
	f.mu.Lock()
	f.reloads++
	f.mu.Unlock()
	return nil
}

type controllerState struct {
	active   string
	reloads  int
	shownFor map[uint32]string
	followed bool
}

func (f *fakeController) snapshot() controllerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	shown := make(map[uint32]string, len(f.shownFor))
	for k, v := range f.shownFor {
		shown[k] = v
	}
	return controllerState{active: f.active, reloads: f.reloads, shownFor: shown, followed: f.followed}
}

func startTestServer(t *testing.T) (*fakeController, *Client) {
	t.Helper()
	ctrl := newFakeController()
	path := filepath.Join(t.TempDir(), "md.sock")
	srv := NewServerAt(path, ctrl)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return ctrl, NewClientAt(path)
}

func TestClientServer_Status(t *testing.T) {
	_, client := startTestServer(t)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning {
		t.Fatalf("expected daemon_running")
	}
	if status.ActiveUser != "alice" || len(status.Users) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestClientServer_StatusErrorsAreReported(t *testing.T) {
	ctrl, client := startTestServer(t)
	ctrl.mu.Lock()
	ctrl.stopped = true
	ctrl.mu.Unlock()

	if _, err := client.GetStatus(); err == nil || !strings.Contains(err.Error(), "loop stopped") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := client.ListWindows(); err == nil || !strings.Contains(err.Error(), "loop stopped") {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestClientServer_OwnerCommands(t *testing.T) {
	ctrl, client := startTestServer(t)

	if err := client.SetOwner(0x400002, "bob"); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	owner, err := client.GetOwner(0x400002)
	if err != nil {
		t.Fatalf("GetOwner: %v", err)
	}
	if owner.Owner != "bob" || owner.OnActiveDesktop {
		t.Fatalf("unexpected owner data %+v", owner)
	}

	shown, err := client.ShowForUser(0x400002, "alice", true)
	if err != nil {
		t.Fatalf("ShowForUser: %v", err)
	}
	if st := ctrl.snapshot(); !shown || st.shownFor[0x400002] != "alice" || !st.followed {
		t.Fatalf("show not forwarded: shown=%v controller=%+v", shown, st)
	}

	if _, err := client.GetOwner(0x999999); err == nil || !strings.Contains(err.Error(), "unknown window") {
		t.Fatalf("expected unknown window error, got %v", err)
	}
}

func TestClientServer_SwitchAndVisibleOwners(t *testing.T) {
	ctrl, client := startTestServer(t)

	if err := client.SwitchUser("bob"); err != nil {
		t.Fatalf("SwitchUser: %v", err)
	}
	if got := ctrl.snapshot().active; got != "bob" {
		t.Fatalf("active = %q, want bob", got)
	}
	if err := client.SwitchUser("mallory"); err == nil {
		t.Fatalf("expected error for unknown user")
	}

	vis, err := client.VisibleOwners()
	if err != nil {
		t.Fatalf("VisibleOwners: %v", err)
	}
	if vis.ActiveUser != "bob" || len(vis.Owners) != 1 || vis.Owners[0] != "alice" {
		t.Fatalf("unexpected visible owners %+v", vis)
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows) != 1 || windows[0].Class != "Firefox" {
		t.Fatalf("unexpected windows %+v", windows)
	}
}

func TestClientServer_ShouldNotifyAndReload(t *testing.T) {
	ctrl, client := startTestServer(t)

	show, err := client.ShouldNotify("alice", false)
	if err != nil || !show {
		t.Fatalf("ShouldNotify(alice) = %v, %v", show, err)
	}
	show, err = client.ShouldNotify("alice", true)
	if err != nil || show {
		t.Fatalf("ShouldNotify(alice, popup) = %v, %v", show, err)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := ctrl.snapshot().reloads; got != 1 {
		t.Fatalf("reloads = %d, want 1", got)
	}
}

func TestServer_RejectsMissingArguments(t *testing.T) {
	_, client := startTestServer(t)

	if err := client.SetOwner(0, "bob"); err == nil || !strings.Contains(err.Error(), "window is required") {
		t.Fatalf("expected window error, got %v", err)
	}
	if err := client.SwitchUser(""); err == nil || !strings.Contains(err.Error(), "user is required") {
		t.Fatalf("expected user error, got %v", err)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	srv := NewServerAt(filepath.Join(t.TempDir(), "unused.sock"), newFakeController())
	resp := srv.handleCommand(&Request{Command: "TILE"})
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "Unknown command") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestParseWindowID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0x3a00007", 0x3a00007, false},
		{"  60817415 ", 60817415, false},
		{"0X10", 16, false},
		{"0", 0, true},
		{"", 0, true},
		{"firefox", 0, true},
		{"0x1ffffffff", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWindowID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := FormatWindowID(0x3a00007); got != "0x3a00007" {
		t.Errorf("FormatWindowID = %q", got)
	}
}
