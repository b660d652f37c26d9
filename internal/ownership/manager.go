package ownership

import (
	"log/slog"
	"sort"
	"time"
)

// maxChainedSwitches bounds how many user switches requested by system
// modal windows are followed in a row.
const maxChainedSwitches = 4

// Options configures a Manager.
type Options struct {
	ActiveUser UserID
	Mode       Mode
	Speed      AnimationSpeed

	// Zero durations fall back to the package defaults.
	SwitchDuration    time.Duration
	TeleportDuration  time.Duration
	TransientDuration time.Duration

	Hook   NotificationHook
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// SurfaceState is the coordinator's view of a surface.
type SurfaceState int

const (
	StateUnowned SurfaceState = iota
	StateVisibleOnActiveDesktop
	StateVisibleOnOtherDesktop
	StateHidden
)

func (s SurfaceState) String() string {
	switch s {
	case StateUnowned:
		return "unowned"
	case StateVisibleOnActiveDesktop:
		return "visible_on_active_desktop"
	case StateVisibleOnOtherDesktop:
		return "visible_on_other_desktop"
	case StateHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// EntrySnapshot describes one owned surface for status output.
type EntrySnapshot struct {
	Surface     SurfaceID
	Owner       UserID
	ShowForUser UserID
	Show        bool
	Visible     bool
	State       SurfaceState
}

// Manager decides which user owns each surface, on which user's desktop it
// is shown and whether it is visible. It is not safe for concurrent use;
// all calls must come from one event loop.
type Manager struct {
	host      Host
	store     *EntryStore
	tracker   *TransientTracker
	driver    *VisibilityDriver
	listeners listenerList
	hook      NotificationHook
	logger    *slog.Logger
	now       func() time.Time

	mode              Mode
	speed             AnimationSpeed
	switchDuration    time.Duration
	teleportDuration  time.Duration
	transientDuration time.Duration

	current   UserID
	users     map[UserID]struct{}
	animation *UserSwitchAnimator

	depth         int
	pendingSwitch UserID

	hookActive UserID
	hookOwners []UserID
	hookSent   bool
}

// NewManager creates a manager driving host with opts.ActiveUser active.
func NewManager(host Host, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := NewEntryStore(logger)
	tracker := NewTransientTracker(host, store)
	m := &Manager{
		host:              host,
		store:             store,
		tracker:           tracker,
		driver:            NewVisibilityDriver(host, tracker),
		hook:              opts.Hook,
		logger:            logger,
		now:               now,
		mode:              opts.Mode,
		speed:             opts.Speed,
		switchDuration:    orDefault(opts.SwitchDuration, DefaultUserSwitchDuration),
		teleportDuration:  orDefault(opts.TeleportDuration, DefaultTeleportDuration),
		transientDuration: orDefault(opts.TransientDuration, DefaultTransientDuration),
		current:           opts.ActiveUser,
		users:             make(map[UserID]struct{}),
	}
	if opts.ActiveUser != "" {
		m.users[opts.ActiveUser] = struct{}{}
	}
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Subscribe registers a listener for ownership changes.
func (m *Manager) Subscribe(l Listener) {
	m.listeners.add(l)
}

// Unsubscribe removes a listener added with Subscribe.
func (m *Manager) Unsubscribe(l Listener) {
	m.listeners.remove(l)
}

// begin and end bracket every public operation. Work that must not run in
// the middle of another operation (user switches requested by system modal
// windows, notification hook updates) is deferred to the outermost end.
func (m *Manager) begin() {
	m.depth++
}

func (m *Manager) end() {
	m.depth--
	if m.depth > 0 {
		return
	}
	for i := 0; m.pendingSwitch != ""; i++ {
		user := m.pendingSwitch
		m.pendingSwitch = ""
		if i >= maxChainedSwitches {
			m.logger.Warn("dropping chained user switch", "user", user)
			break
		}
		m.depth++
		m.activeUserChanged(user)
		m.depth--
	}
	m.updateHook()
}

// SetWindowOwner makes user the permanent owner of s. Calling it for a
// surface that already has an owner does nothing.
func (m *Manager) SetWindowOwner(s SurfaceID, user UserID) {
	m.begin()
	defer m.end()

	if m.store.Owner(s) == user {
		return
	}
	if !m.store.AssignOwner(s, user) {
		return
	}
	m.tracker.Drop(s)
	m.addUser(user)
	// Transient children attached before the owner was known.
	m.tracker.Register(s, s)

	m.logger.Debug("window owner set", "surface", s, "owner", user)
	m.listeners.broadcast(Change{Type: ChangeEntryAdded, Surface: s, User: user})

	m.setWindowVisibility(s, m.IsWindowOnDesktopOfUser(s, m.current), 0)
}

// GetWindowOwner returns the owner of s, or "" when it has none.
func (m *Manager) GetWindowOwner(s SurfaceID) UserID {
	return m.store.Owner(s)
}

// ShowWindowForUser places s on the desktop of user. It returns true when
// the surface moved to a different desktop; callers use this to decide
// whether to switch the active user as well.
func (m *Manager) ShowWindowForUser(s SurfaceID, user UserID) bool {
	m.begin()
	defer m.end()

	e, ok := m.store.Entry(s)
	if !ok {
		m.logger.Warn("show for user on unowned surface", "surface", s, "user", user)
		return false
	}
	if user == "" {
		user = e.Owner
	}
	if e.ShowForUser == user {
		return false
	}
	m.store.SetShowForUser(s, user)
	m.addUser(user)

	if user == m.current {
		if e.Show {
			m.setWindowVisibility(s, true, m.speed.adjust(m.teleportDuration))
		}
	} else {
		m.setWindowVisibility(s, false, m.speed.adjust(m.teleportDuration))
	}

	m.logger.Debug("window moved", "surface", s, "from", e.ShowForUser, "to", user)
	m.listeners.broadcast(Change{Type: ChangeEntryChanged, Surface: s, User: user})
	return true
}

// IsWindowOnDesktopOfUser reports whether s belongs on user's desktop.
// Unowned surfaces are on every desktop.
func (m *Manager) IsWindowOnDesktopOfUser(s SurfaceID, user UserID) bool {
	if !m.separated() {
		return true
	}
	presenting := m.GetUserPresentingWindow(s)
	return presenting == "" || presenting == user
}

// GetUserPresentingWindow returns the user whose desktop shows s, or "".
func (m *Manager) GetUserPresentingWindow(s SurfaceID) UserID {
	if e, ok := m.store.Entry(s); ok {
		return e.ShowForUser
	}
	return ""
}

// AreWindowsSharedAmongUsers is true only in mixed mode.
func (m *Manager) AreWindowsSharedAmongUsers() bool {
	return m.mode == ModeMixed
}

// GetOwnersOfVisibleWindows returns the owners of all owned surfaces that
// are currently visible, sorted.
func (m *Manager) GetOwnersOfVisibleWindows() []UserID {
	seen := make(map[UserID]struct{})
	for _, s := range m.store.Surfaces() {
		if m.host.IsVisible(s) {
			seen[m.store.Owner(s)] = struct{}{}
		}
	}
	return sortedUsers(seen)
}

// ActiveUserChanged makes user the active user and animates the switch.
// A switch arriving while another is animating replaces it: the running
// animation is cancelled and its completion never fires.
func (m *Manager) ActiveUserChanged(user UserID) {
	m.begin()
	defer m.end()
	m.activeUserChanged(user)
}

func (m *Manager) activeUserChanged(user UserID) {
	if user == "" {
		m.logger.Warn("ignoring switch to empty user")
		return
	}
	if user == m.current {
		return
	}
	prev := m.current
	outgoing := m.store.SurfacesShownFor(prev)
	if m.animation != nil {
		old := m.animation
		m.animation = nil
		old.Cancel()
		outgoing = unionSurfaces(outgoing, old.Outgoing(), old.Incoming())
		m.logger.Debug("replacing running user switch", "from", old.From(), "to", old.To())
	}
	incoming := m.store.SurfacesShownFor(user)

	m.current = user
	m.addUser(user)
	m.logger.Info("active user changed", "from", prev, "to", user)
	m.listeners.broadcast(Change{Type: ChangeActiveUser, User: user})

	if !m.separated() {
		return
	}

	duration := m.speed.adjust(m.switchDuration)
	var fade func(SurfaceID, float64)
	if _, ok := m.host.(OpacityHost); ok && duration > 0 {
		fade = m.driver.SetOpacity
	}
	a := NewUserSwitchAnimator(prev, user, outgoing, incoming, duration, fade, m.onSwitchComplete)
	m.animation = a

	staying := make(map[SurfaceID]struct{}, len(outgoing))
	for _, s := range outgoing {
		staying[s] = struct{}{}
	}
	for _, s := range incoming {
		if fade != nil {
			if _, ok := staying[s]; ok {
				m.driver.SetOpacity(s, 1)
			} else if !m.host.IsVisible(s) {
				m.driver.SetOpacity(s, 0)
			}
		}
		m.setWindowVisibility(s, true, 0)
	}
	a.Start(m.now())
}

func (m *Manager) onSwitchComplete(a *UserSwitchAnimator) {
	if m.animation != a {
		return
	}
	m.animation = nil

	keep := make(map[SurfaceID]struct{})
	for _, s := range a.Incoming() {
		keep[s] = struct{}{}
	}
	fading := false
	if _, ok := m.host.(OpacityHost); ok && m.speed.adjust(m.switchDuration) > 0 {
		fading = true
	}
	for _, s := range a.Outgoing() {
		if _, ok := keep[s]; !ok {
			m.setWindowVisibility(s, false, 0)
		}
		if fading {
			m.driver.SetOpacity(s, 1)
		}
	}
	if fading {
		for _, s := range a.Incoming() {
			m.driver.SetOpacity(s, 1)
		}
	}
	// Surfaces that changed hands while the animation ran.
	for _, s := range m.store.Surfaces() {
		if !m.IsWindowOnDesktopOfUser(s, m.current) && m.host.IsVisible(s) {
			m.setWindowVisibility(s, false, 0)
		}
	}
	m.logger.Debug("user switch finished", "user", a.To())
}

// Tick advances a running user switch animation.
func (m *Manager) Tick(now time.Time) {
	if m.animation == nil {
		return
	}
	m.begin()
	defer m.end()
	m.animation.Step(now)
}

// IsAnimationRunning reports whether a user switch is being animated.
func (m *Manager) IsAnimationRunning() bool {
	return m.animation != nil && m.animation.Running()
}

// CurrentUser returns the active user.
func (m *Manager) CurrentUser() UserID {
	return m.current
}

// AddUser records a signed-in user.
func (m *Manager) AddUser(user UserID) {
	m.begin()
	defer m.end()
	m.addUser(user)
}

func (m *Manager) addUser(user UserID) {
	if user == "" {
		return
	}
	if _, ok := m.users[user]; ok {
		return
	}
	m.users[user] = struct{}{}
	m.listeners.broadcast(Change{Type: ChangeUserAdded, User: user})
}

// Users returns all users seen so far, sorted.
func (m *Manager) Users() []UserID {
	return sortedUsers(m.users)
}

// Mode returns the current sharing mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// SetMode changes the sharing mode and re-applies visibility to all owned
// surfaces.
func (m *Manager) SetMode(mode Mode) {
	m.begin()
	defer m.end()
	if mode == m.mode {
		return
	}
	m.mode = mode
	for _, s := range m.store.Surfaces() {
		e, _ := m.store.Entry(s)
		m.setWindowVisibility(s, e.Show && m.IsWindowOnDesktopOfUser(s, m.current), 0)
	}
}

// SetAnimationSpeed changes the speed used for subsequent animations.
func (m *Manager) SetAnimationSpeed(speed AnimationSpeed) {
	m.speed = speed
}

// State returns the coordinator's view of s.
func (m *Manager) State(s SurfaceID) SurfaceState {
	e, ok := m.store.Entry(s)
	if !ok {
		return StateUnowned
	}
	switch {
	case !e.Show:
		return StateHidden
	case e.ShowForUser == m.current:
		return StateVisibleOnActiveDesktop
	default:
		return StateVisibleOnOtherDesktop
	}
}

// RevealAll stops a running user switch and shows every owned surface
// whose application wants it visible, on whatever desktop it belongs to.
// Transient children come back as their records say. Used when the
// windows are handed back to an unmanaged display.
func (m *Manager) RevealAll() {
	m.begin()
	defer m.end()

	if a := m.animation; a != nil {
		m.animation = nil
		a.Cancel()
		for _, s := range unionSurfaces(a.Outgoing(), a.Incoming()) {
			m.driver.SetOpacity(s, 1)
		}
	}
	for _, s := range m.store.Surfaces() {
		if e, _ := m.store.Entry(s); e.Show {
			m.driver.SetWindowVisibility(s, true, 0)
		}
	}
}

// Entries returns a snapshot of every owned surface.
func (m *Manager) Entries() []EntrySnapshot {
	surfaces := m.store.Surfaces()
	out := make([]EntrySnapshot, 0, len(surfaces))
	for _, s := range surfaces {
		e, _ := m.store.Entry(s)
		out = append(out, EntrySnapshot{
			Surface:     s,
			Owner:       e.Owner,
			ShowForUser: e.ShowForUser,
			Show:        e.Show,
			Visible:     m.host.IsVisible(s),
			State:       m.State(s),
		})
	}
	return out
}

// TransientRecord exposes the remembered visibility of a transient child.
func (m *Manager) TransientRecord(s SurfaceID) (visible bool, ok bool) {
	return m.tracker.Record(s)
}

// Handle dispatches a notification from the windowing system.
func (m *Manager) Handle(ev Event) {
	m.begin()
	defer m.end()

	switch e := ev.(type) {
	case SurfaceCreated:
		m.logger.Debug("surface created", "surface", e.Surface)
	case SurfaceDestroyed:
		m.onSurfaceDestroyed(e.Surface)
	case VisibilityChanging:
		m.onVisibilityChanging(e)
	case VisibilityChanged:
		m.onVisibilityChanged(e)
	case TransientAdded:
		m.onTransientAdded(e.Parent, e.Child)
	case TransientRemoved:
		m.onTransientRemoved(e.Parent, e.Child)
	case ActiveUserSwitched:
		m.activeUserChanged(e.User)
	default:
		m.logger.Warn("unknown event", "event", ev)
	}
}

func (m *Manager) onSurfaceDestroyed(s SurfaceID) {
	if m.animation != nil {
		m.animation.Forget(s)
	}
	// Transient children can outlive s. They leave the tracker as on a
	// detach and get back the visibility they had before s hid them.
	for _, child := range m.host.TransientChildren(s) {
		for _, r := range m.tracker.Unregister(child) {
			m.driver.Restore(r)
		}
	}
	m.tracker.Drop(s)
	if !m.store.Remove(s) {
		return
	}
	m.logger.Debug("owned window destroyed", "surface", s)
	m.listeners.broadcast(Change{Type: ChangeEntryRemoved, Surface: s})
}

// onVisibilityChanging remembers what someone other than the manager asked
// for, so it can be restored when the surface's desktop is shown again.
func (m *Manager) onVisibilityChanging(e VisibilityChanging) {
	if m.driver.Suppressed() || e.SelfCaused {
		return
	}
	if m.store.Has(e.Surface) {
		m.store.SetShow(e.Surface, e.Visible)
		return
	}
	m.tracker.Observe(e.Surface, e.Visible)
}

// onVisibilityChanged hides surfaces that were made visible on a desktop
// that is not active.
func (m *Manager) onVisibilityChanged(e VisibilityChanged) {
	if m.driver.Suppressed() || e.SelfCaused || !e.Visible {
		return
	}
	if !m.IsWindowOnDesktopOfUser(e.Surface, m.current) {
		m.setWindowVisibility(e.Surface, false, 0)
		return
	}
	if owner, ok := m.tracker.OwningWindowInChain(e.Surface); ok && !m.IsWindowOnDesktopOfUser(owner, m.current) {
		m.setWindowVisibility(e.Surface, false, 0)
	}
}

func (m *Manager) onTransientAdded(parent, child SurfaceID) {
	owned := parent
	if !m.store.Has(parent) {
		var ok bool
		if owned, ok = m.tracker.OwningWindowInChain(parent); !ok {
			return
		}
	}
	added := m.tracker.Register(child, owned)
	m.logger.Debug("transient attached", "child", child, "owner_window", owned, "registered", len(added))
	if !m.IsWindowOnDesktopOfUser(owned, m.current) {
		m.setWindowVisibility(child, false, m.speed.adjust(m.transientDuration))
	}
}

func (m *Manager) onTransientRemoved(parent, child SurfaceID) {
	if !m.store.Has(parent) {
		if _, ok := m.tracker.OwningWindowInChain(parent); !ok {
			return
		}
	}
	for _, s := range m.tracker.Unregister(child) {
		m.driver.Restore(s)
	}
}

// setWindowVisibility applies the system modal exception before handing
// the request to the driver: a system modal surface is never hidden, the
// desktop of the user presenting it is activated instead.
func (m *Manager) setWindowVisibility(s SurfaceID, visible bool, d time.Duration) {
	if !visible && !m.separated() {
		return
	}
	if m.host.IsVisible(s) == visible {
		return
	}
	if !visible {
		if modal, ok := m.findSystemModal(s); ok {
			user := m.GetUserPresentingWindow(modal)
			if user == "" {
				if owner, ok := m.tracker.OwningWindowInChain(modal); ok {
					user = m.GetUserPresentingWindow(owner)
				}
			}
			if user != "" && user != m.current {
				m.logger.Debug("system modal window keeps desktop", "surface", modal, "user", user)
				m.pendingSwitch = user
			}
			return
		}
	}
	m.driver.SetWindowVisibility(s, visible, d)
}

// findSystemModal returns s or the first visible transient descendant of s
// that is system modal. Hiding s would hide it as well.
func (m *Manager) findSystemModal(s SurfaceID) (SurfaceID, bool) {
	seen := make(map[SurfaceID]struct{})
	var walk func(SurfaceID) (SurfaceID, bool)
	walk = func(cur SurfaceID) (SurfaceID, bool) {
		if _, ok := seen[cur]; ok {
			return 0, false
		}
		seen[cur] = struct{}{}
		if m.host.IsVisible(cur) && m.host.IsSystemModal(cur) {
			return cur, true
		}
		for _, child := range m.host.TransientChildren(cur) {
			if found, ok := walk(child); ok {
				return found, true
			}
		}
		return 0, false
	}
	return walk(s)
}

func (m *Manager) separated() bool {
	return m.mode == ModeSeparated
}

func (m *Manager) updateHook() {
	if m.hook == nil {
		return
	}
	owners := m.GetOwnersOfVisibleWindows()
	if m.hookSent && m.hookActive == m.current && equalUsers(m.hookOwners, owners) {
		return
	}
	m.hookSent = true
	m.hookActive = m.current
	m.hookOwners = owners
	m.hook.UpdateVisibleOwners(m.current, owners)
}

func sortedUsers(set map[UserID]struct{}) []UserID {
	out := make([]UserID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalUsers(a, b []UserID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionSurfaces(sets ...[]SurfaceID) []SurfaceID {
	seen := make(map[SurfaceID]struct{})
	for _, set := range sets {
		for _, s := range set {
			seen[s] = struct{}{}
		}
	}
	return setToSorted(seen)
}
