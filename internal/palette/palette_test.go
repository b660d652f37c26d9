package palette

import (
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/multidesk/internal/ipc"
)

func TestRofiFormatItem_UsesSingleNullSeparator(t *testing.T) {
	l := newLauncher(kindRofi)

	out := l.formatItem(Item{
		Label:    "Users",
		IsHeader: true,
		Icon:     "system-users",
		Meta:     "meta",
	})

	if got := strings.Count(out, "\x00"); got != 1 {
		t.Fatalf("expected exactly 1 NUL separator, got %d (%q)", got, out)
	}
	if !strings.HasPrefix(out, "<b>Users</b>\x00nonselectable\x1ftrue") {
		t.Fatalf("expected bold nonselectable header, got %q", out)
	}
	if !strings.Contains(out, "icon\x1fsystem-users") || !strings.Contains(out, "meta\x1fmeta") {
		t.Fatalf("expected icon/meta attributes, got %q", out)
	}
}

func TestRofiFormatItem_EscapesMarkup(t *testing.T) {
	l := newLauncher(kindRofi)

	out := l.formatItem(Item{Label: "bob: <script> & co"})
	if out != "bob: &lt;script&gt; &amp; co" {
		t.Fatalf("unexpected escaped label %q", out)
	}
}

func TestRofiBuildArgs_RowStates(t *testing.T) {
	l := newLauncher(kindRofi)

	_, states := l.formatInput([]Item{
		{Label: "Users", IsHeader: true},
		{Label: "alice"},
		{Label: "bob", IsActive: true},
		{Label: "carol", IsUrgent: true},
	})
	args := l.buildArgs("prompt", "message", states)

	for _, pair := range [][2]string{
		{"-format", "i"},
		{"-a", "2"},
		{"-u", "3"},
		{"-selected-row", "2"},
		{"-kb-custom-1", "Alt+Return"},
		{"-mesg", "message"},
	} {
		if !containsArgs(args, pair[0], pair[1]) {
			t.Fatalf("expected %s %s in args, got %v", pair[0], pair[1], args)
		}
	}
}

func TestRofiBuildArgs_SelectsFirstSelectableRow(t *testing.T) {
	l := newLauncher(kindRofi)

	_, states := l.formatInput([]Item{
		{Label: "Users", IsHeader: true},
		{Label: "alice"},
	})
	if states.selectedRow != 1 {
		t.Fatalf("selectedRow = %d, want 1", states.selectedRow)
	}
}

func TestDmenu_DropsHeadersAndDisambiguates(t *testing.T) {
	l := newLauncher(kindDmenu)

	rows := l.visibleItems([]Item{
		{Label: "Windows", IsHeader: true},
		{Label: "bob: xterm", Action: "a"},
		{Label: "bob: xterm", Action: "b"},
	})
	if len(rows) != 2 {
		t.Fatalf("expected headers dropped, got %+v", rows)
	}
	if rows[1].Label != "bob: xterm (2)" {
		t.Fatalf("expected disambiguated label, got %q", rows[1].Label)
	}

	item, err := l.parseSelection("bob: xterm (2)", rows)
	if err != nil {
		t.Fatalf("parseSelection: %v", err)
	}
	if item.Action != "b" {
		t.Fatalf("selected %q, want b", item.Action)
	}

	args := l.buildArgs("multidesk", "ignored", rowStates{})
	if containsArg(args, "-mesg") || !containsArgs(args, "-p", "multidesk") {
		t.Fatalf("unexpected dmenu args %v", args)
	}
}

func TestRofiParseSelection_Index(t *testing.T) {
	l := newLauncher(kindRofi)
	items := []Item{{Label: "a", Action: "x"}, {Label: "b", Action: "y"}}

	item, err := l.parseSelection("1", items)
	if err != nil || item.Action != "y" {
		t.Fatalf("parseSelection = %+v, %v", item, err)
	}
	if _, err := l.parseSelection("5", items); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := NewBackend("fuzzel"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func sampleState() (*ipc.StatusData, []ipc.WindowInfo) {
	status := &ipc.StatusData{ActiveUser: "alice", Users: []string{"alice", "bob", "carol"}}
	windows := []ipc.WindowInfo{
		{ID: 0x100, Class: "XTerm", Title: "alice shell", Owner: "alice", PresentedTo: "alice"},
		{ID: 0x200, Class: "Firefox", Title: "news", Owner: "bob", PresentedTo: "bob"},
		{ID: 0x300, Class: "XTerm", Title: "", Owner: "alice", PresentedTo: "carol"},
		{ID: 0x400, Class: "Dialog", Owner: "bob", PresentedTo: "bob", TransientFor: 0x200},
		{ID: 0x500, Class: "Panel"},
	}
	return status, windows
}

func TestItems(t *testing.T) {
	status, windows := sampleState()
	items := Items(status, windows)

	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	want := []string{
		"Users", "alice", "bob (1)", "carol (1)",
		"Windows on other desktops", "bob: news", "carol: XTerm",
	}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("labels = %q, want %q", labels, want)
	}
	if !items[1].IsActive || items[2].IsActive {
		t.Fatalf("expected only alice active")
	}
	if items[5].IsUrgent || !items[6].IsUrgent {
		t.Fatalf("only teleported windows are urgent: %+v %+v", items[5], items[6])
	}
	if items[6].Action != "window:0x300" {
		t.Fatalf("action = %q", items[6].Action)
	}
}

type fakeClient struct {
	status   *ipc.StatusData
	windows  []ipc.WindowInfo
	switched string
	shownID  uint32
	shownFor string
	follow   bool
	unmoved  bool
}

func (f *fakeClient) GetStatus() (*ipc.StatusData, error) {
	return f.status, nil
}

func (f *fakeClient) ListWindows() ([]ipc.WindowInfo, error) {
	return f.windows, nil
}

func (f *fakeClient) SwitchUser(user string) error {
	f.switched = user
	return nil
}

func (f *fakeClient) ShowForUser(window uint32, user string, follow bool) (bool, error) {
	f.shownID, f.shownFor, f.follow = window, user, follow
	return !f.unmoved, nil
}

type fakeBackend struct {
	pick     func(items []Item) Item
	exitCode int
	prompt   string
	err      error
}

func (f *fakeBackend) Rich() bool { return true }

func (f *fakeBackend) Show(prompt string, items []Item, _ string) (SelectResult, error) {
	f.prompt = prompt
	if f.err != nil {
		return SelectResult{}, f.err
	}
	return SelectResult{Item: f.pick(items), ExitCode: f.exitCode}, nil
}

func pickLabel(label string) func([]Item) Item {
	return func(items []Item) Item {
		for _, item := range items {
			if item.Label == label {
				return item
			}
		}
		return Item{}
	}
}

func TestRun_SwitchUser(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows}
	backend := &fakeBackend{pick: pickLabel("bob (1)")}

	if err := Run(backend, client); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.switched != "bob" {
		t.Fatalf("switched = %q, want bob", client.switched)
	}
	if backend.prompt != "multidesk (alice)" {
		t.Fatalf("prompt = %q", backend.prompt)
	}
}

func TestRun_ActiveUserIsNoop(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows}

	if err := Run(&fakeBackend{pick: pickLabel("alice")}, client); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.switched != "" {
		t.Fatalf("expected no switch, got %q", client.switched)
	}
}

func TestRun_BringWindowHere(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows}

	if err := Run(&fakeBackend{pick: pickLabel("carol: XTerm")}, client); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.shownID != 0x300 || client.shownFor != "alice" || !client.follow {
		t.Fatalf("unexpected show %+v", client)
	}
}

func TestRun_BringWindowHereNotMoved(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows, unmoved: true}

	err := Run(&fakeBackend{pick: pickLabel("carol: XTerm")}, client)
	if err == nil || !strings.Contains(err.Error(), "could not be shown") {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestRun_AlternateFollowsWindow(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows, unmoved: true}
	backend := &fakeBackend{pick: pickLabel("carol: XTerm"), exitCode: ExitAlternate}

	if err := Run(backend, client); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.shownID != 0x300 || client.shownFor != "carol" || !client.follow {
		t.Fatalf("unexpected show %+v", client)
	}
}

func TestRun_Cancelled(t *testing.T) {
	status, windows := sampleState()
	client := &fakeClient{status: status, windows: windows}

	err := Run(&fakeBackend{err: ErrCancelled}, client)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func containsArgs(args []string, key, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == key && args[i+1] == value {
			return true
		}
	}
	return false
}
