package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/multidesk/internal/banner"
	"github.com/1broseidon/multidesk/internal/config"
	"github.com/1broseidon/multidesk/internal/notifyblock"
	"github.com/1broseidon/multidesk/internal/ownership"
	"github.com/1broseidon/multidesk/internal/platform"
	"github.com/1broseidon/multidesk/internal/registry"
)

// WindowSystem is the platform backend plus the bookkeeping the daemon
// needs to turn raw window events into ownership events.
type WindowSystem interface {
	platform.Backend
	// Watch subscribes to map, unmap, destroy and property events of id.
	Watch(id platform.WindowID) error
	Adopt(id platform.WindowID) (platform.Window, bool)
	Refresh(id platform.WindowID) (platform.Window, bool)
	IsNormal(id platform.WindowID) bool
	NoteMapState(id platform.WindowID, visible bool) (changed, selfCaused bool)
	NoteTransientFor(id platform.WindowID) (oldParent, newParent platform.WindowID, changed bool)
	NoteWindowState(id platform.WindowID)
	Forget(id platform.WindowID) []platform.WindowID
	Exists(id platform.WindowID) bool
	Tracked(id platform.WindowID) bool
}

// Options configures a Service.
type Options struct {
	Config  *config.Config
	Windows WindowSystem
	// RegistryPath is where window owners are persisted. Empty disables
	// persistence.
	RegistryPath string
	// LoadConfig re-reads the configuration for Reload.
	LoadConfig func() (*config.Config, error)
	// Announcer, if set, is told about the new desktop after each switch.
	Announcer Announcer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Announcer shows the active user on screen.
type Announcer interface {
	Announce(s banner.Summary)
}

// Service owns the ownership manager and everything that feeds it. All
// state is confined to the service loop; exported methods are safe to call
// from any goroutine.
type Service struct {
	loop      *Loop
	mgr       *ownership.Manager
	windows   WindowSystem
	blocker   *notifyblock.Blocker
	announcer Announcer
	logger    *slog.Logger

	cfg        *config.Config
	loadConfig func() (*config.Config, error)

	registryPath string
	restore      map[ownership.SurfaceID]registry.OwnerRecord
	dirty        bool

	// Windows waiting for their first map before an owner is picked.
	// WM_CLASS is rarely set when the window is created.
	pending map[platform.WindowID]struct{}
}

// NewService builds the manager from cfg and restores the saved registry.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Service{
		windows:      opts.Windows,
		blocker:      notifyblock.New(logger),
		announcer:    opts.Announcer,
		logger:       logger,
		cfg:          cfg,
		loadConfig:   opts.LoadConfig,
		registryPath: opts.RegistryPath,
		restore:      make(map[ownership.SurfaceID]registry.OwnerRecord),
		pending:      make(map[platform.WindowID]struct{}),
	}

	active := ownership.UserID(cfg.InitialUser)
	if reg := s.loadRegistry(); reg != nil {
		s.restore = reg.Owners
		if reg.ActiveUser != "" && knows(cfg.AllUsers(), reg.ActiveUser) {
			active = reg.ActiveUser
		}
	}

	s.mgr = ownership.NewManager(opts.Windows, ownership.Options{
		ActiveUser:        active,
		Mode:              cfg.OwnershipMode(),
		Speed:             cfg.AnimationSpeed(),
		SwitchDuration:    cfg.SwitchDuration(),
		TeleportDuration:  cfg.TeleportDuration(),
		TransientDuration: cfg.TransientDuration(),
		Hook:              s.blocker,
		Logger:            logger,
		Now:               opts.Now,
	})
	s.mgr.Subscribe(s)
	for _, u := range cfg.AllUsers() {
		s.mgr.AddUser(u)
	}

	s.loop = NewLoop(cfg.FrameInterval(), s.frame, logger)
	return s
}

func (s *Service) loadRegistry() *registry.Registry {
	if s.registryPath == "" {
		return nil
	}
	reg, err := registry.Load(s.registryPath)
	if err != nil {
		s.logger.Warn("ignoring owner registry", "path", s.registryPath, "error", err)
		return nil
	}
	return reg
}

// Run processes window events and requests until ctx is cancelled. Blocks.
func (s *Service) Run(ctx context.Context) {
	s.loop.Run(ctx)
}

// Loop returns the serial loop the service runs on.
func (s *Service) Loop() *Loop {
	return s.loop
}

// Blocker returns the notification blocker fed by the manager.
func (s *Service) Blocker() *notifyblock.Blocker {
	return s.blocker
}

// Manager exposes the ownership manager. It must only be used from tasks
// running on Loop.
func (s *Service) Manager() *ownership.Manager {
	return s.mgr
}

// OnOwnershipChange marks the registry for saving and announces user
// switches.
func (s *Service) OnOwnershipChange(c ownership.Change) {
	s.dirty = true
	s.logger.Debug("ownership changed", "type", c.Type, "surface", c.Surface, "user", c.User)
	if c.Type == ownership.ChangeActiveUser && s.announcer != nil {
		s.announcer.Announce(s.summary(c.User))
	}
}

func (s *Service) summary(user ownership.UserID) banner.Summary {
	sum := banner.Summary{User: string(user)}
	for _, e := range s.mgr.Entries() {
		switch {
		case e.ShowForUser == user:
			sum.Windows++
			if e.Owner != user {
				sum.Guests++
			}
		case e.Owner == user:
			sum.Away++
		}
	}
	return sum
}

func (s *Service) frame(now time.Time) bool {
	if !s.mgr.IsAnimationRunning() {
		return false
	}
	s.mgr.Tick(now)
	return s.mgr.IsAnimationRunning()
}

// Scan adopts windows that existed before the daemon started: the window
// manager's client list plus every saved window that is still alive.
// Hidden windows are withdrawn and no longer appear in the client list.
func (s *Service) Scan(clients []platform.WindowID) {
	s.loop.Post(func() { s.scan(clients) })
}

func (s *Service) scan(clients []platform.WindowID) {
	seen := make(map[platform.WindowID]struct{})
	var adopted []platform.WindowID
	consider := func(id platform.WindowID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		if s.adopt(id) {
			adopted = append(adopted, id)
		}
	}
	for _, id := range clients {
		consider(id)
	}
	for id := range s.restore {
		if s.windows.Exists(id) {
			consider(id)
		} else {
			delete(s.restore, id)
		}
	}

	for _, id := range adopted {
		w, _ := s.windows.Window(id)
		if _, saved := s.restore[id]; saved || w.Visible {
			s.assignOwner(id)
		} else {
			s.pending[id] = struct{}{}
		}
	}
	s.logger.Info("initial scan finished", "windows", len(adopted), "owned", len(s.mgr.Entries()))
	s.saveRegistry()
}

func (s *Service) adopt(id platform.WindowID) bool {
	if s.windows.Tracked(id) {
		return true
	}
	// Subscribe first so a map racing with Adopt is not lost.
	if err := s.windows.Watch(id); err != nil {
		s.logger.Debug("failed to watch window", "window", id, "error", err)
		return false
	}
	w, ok := s.windows.Adopt(id)
	if !ok {
		s.windows.Forget(id)
		return false
	}
	s.mgr.Handle(ownership.SurfaceCreated{Surface: id})
	if w.TransientFor != 0 {
		s.mgr.Handle(ownership.TransientAdded{Parent: w.TransientFor, Child: id})
	}
	return true
}

// assignOwner picks an owner for a new top-level window: a saved record
// first, then the first matching rule, then the active user when
// own_unmatched is set. Transients follow their parent and are never owned.
func (s *Service) assignOwner(id platform.WindowID) {
	delete(s.pending, id)
	if s.mgr.GetWindowOwner(id) != "" {
		return
	}
	w, ok := s.windows.Refresh(id)
	if !ok {
		return
	}
	if rec, ok := s.restore[id]; ok {
		delete(s.restore, id)
		s.mgr.SetWindowOwner(id, rec.Owner)
		if rec.ShowForUser != "" {
			s.mgr.ShowWindowForUser(id, rec.ShowForUser)
		}
		s.logger.Debug("window owner restored", "window", id, "owner", rec.Owner)
		return
	}
	if w.TransientFor != 0 || !s.windows.IsNormal(id) {
		return
	}
	user, matched := s.cfg.OwnerForClass(w.Instance, w.Class)
	if !matched {
		if !s.cfg.OwnUnmatched {
			return
		}
		user = s.mgr.CurrentUser()
	}
	s.mgr.SetWindowOwner(id, user)
	s.logger.Info("window owned", "window", id, "class", w.Class, "owner", user, "rule", matched)
}

// saveRegistry writes the registry when something changed since the last
// save.
func (s *Service) saveRegistry() {
	if s.registryPath == "" || !s.dirty {
		return
	}
	reg := registry.FromEntries(s.mgr.CurrentUser(), s.mgr.Entries())
	if err := registry.Save(s.registryPath, reg); err != nil {
		s.logger.Warn("failed to save owner registry", "path", s.registryPath, "error", err)
		return
	}
	s.dirty = false
}

// Shutdown saves the registry and maps every window the manager hid, so
// no window stays withdrawn after the daemon exits. The service loop must
// no longer be running.
func (s *Service) Shutdown() {
	s.dirty = true
	s.saveRegistry()
	s.mgr.RevealAll()
}

func (s *Service) applyConfig(cfg *config.Config) {
	s.cfg = cfg
	for _, u := range cfg.AllUsers() {
		s.mgr.AddUser(u)
	}
	s.mgr.SetAnimationSpeed(cfg.AnimationSpeed())
	s.mgr.SetMode(cfg.OwnershipMode())
	s.logger.Info("config applied", "mode", cfg.Mode, "rules", len(cfg.Rules), "users", len(cfg.Users))
}

func knows(users []ownership.UserID, user ownership.UserID) bool {
	for _, u := range users {
		if u == user {
			return true
		}
	}
	return false
}
