package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/multidesk/internal/banner"
	"github.com/1broseidon/multidesk/internal/ownership"
)

// OwnerRule assigns windows whose WM_CLASS matches Class to User.
type OwnerRule struct {
	Class string `yaml:"class"`
	User  string `yaml:"user"`
}

// AnimationConfig controls the user switch and teleport animations.
type AnimationConfig struct {
	Speed               string `yaml:"speed"`
	SwitchDurationMs    int    `yaml:"switch_duration_ms"`
	TeleportDurationMs  int    `yaml:"teleport_duration_ms"`
	TransientDurationMs int    `yaml:"transient_duration_ms"`
	FrameRate           int    `yaml:"frame_rate"`
}

// Config holds the daemon configuration.
type Config struct {
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	InitialUser string   `yaml:"initial_user"`
	Users       []string `yaml:"users"`
	Mode        string   `yaml:"mode"`

	Animation AnimationConfig `yaml:"animation"`

	Rules        []OwnerRule `yaml:"rules"`
	OwnUnmatched bool        `yaml:"own_unmatched"`
	// SwitchHotkeys maps a key binding such as "Mod4-Mod1-1" to a user.
	SwitchHotkeys map[string]string `yaml:"switch_hotkeys"`

	// PaletteHotkey opens the user and window picker.
	PaletteHotkey  string `yaml:"palette_hotkey"`
	PaletteBackend string `yaml:"palette_backend"`

	// BannerMs is how long the active user banner stays up; 0 disables it.
	BannerMs     int    `yaml:"banner_ms"`
	BannerCorner string `yaml:"banner_corner"`

	LogLevel                 string `yaml:"log_level"`
	ReconcileIntervalSeconds int    `yaml:"reconcile_interval_seconds"`
}

// DefaultConfig returns a config that manages a single local user.
func DefaultConfig() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "default"
	}
	return &Config{
		InitialUser: user,
		Users:       []string{user},
		Mode:        ownership.ModeSeparated.String(),
		Animation: AnimationConfig{
			Speed:               ownership.AnimationSpeedNormal.String(),
			SwitchDurationMs:    int(ownership.DefaultUserSwitchDuration / time.Millisecond),
			TeleportDurationMs:  int(ownership.DefaultTeleportDuration / time.Millisecond),
			TransientDurationMs: int(ownership.DefaultTransientDuration / time.Millisecond),
			FrameRate:           60,
		},
		Rules:                    []OwnerRule{},
		OwnUnmatched:             true,
		SwitchHotkeys:            map[string]string{},
		PaletteBackend:           "auto",
		BannerMs:                 1200,
		BannerCorner:             string(banner.TopRight),
		LogLevel:                 "info",
		ReconcileIntervalSeconds: 5,
	}
}

// Save writes the config to path atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Validate checks that the config is usable by the daemon.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InitialUser) == "" {
		return &ValidationError{Path: "initial_user", Err: fmt.Errorf("initial_user is required")}
	}
	seen := make(map[string]struct{}, len(c.Users))
	for _, u := range c.Users {
		if strings.TrimSpace(u) == "" {
			return &ValidationError{Path: "users", Err: fmt.Errorf("users contains an empty name")}
		}
		if _, dup := seen[u]; dup {
			return &ValidationError{Path: "users", Err: fmt.Errorf("duplicate user %q", u)}
		}
		seen[u] = struct{}{}
	}
	if len(c.Users) > 0 && !c.knowsUser(c.InitialUser) {
		return &ValidationError{Path: "initial_user", Err: fmt.Errorf("initial_user %q is not listed in users", c.InitialUser)}
	}
	if _, ok := ownership.ParseMode(c.Mode); !ok {
		return &ValidationError{Path: "mode", Err: fmt.Errorf("mode must be one of: separated, mixed, off")}
	}
	if _, ok := ownership.ParseAnimationSpeed(c.Animation.Speed); !ok {
		return &ValidationError{Path: "animation.speed", Err: fmt.Errorf("speed must be one of: normal, fast, disabled")}
	}
	if c.Animation.SwitchDurationMs < 0 {
		return &ValidationError{Path: "animation.switch_duration_ms", Err: fmt.Errorf("switch_duration_ms must be >= 0")}
	}
	if c.Animation.TeleportDurationMs < 0 {
		return &ValidationError{Path: "animation.teleport_duration_ms", Err: fmt.Errorf("teleport_duration_ms must be >= 0")}
	}
	if c.Animation.TransientDurationMs < 0 {
		return &ValidationError{Path: "animation.transient_duration_ms", Err: fmt.Errorf("transient_duration_ms must be >= 0")}
	}
	if c.Animation.FrameRate < 1 || c.Animation.FrameRate > 240 {
		return &ValidationError{Path: "animation.frame_rate", Err: fmt.Errorf("frame_rate must be between 1 and 240")}
	}
	for i, rule := range c.Rules {
		path := fmt.Sprintf("rules.%d", i)
		if strings.TrimSpace(rule.Class) == "" {
			return &ValidationError{Path: path + ".class", Err: fmt.Errorf("class must not be empty")}
		}
		if strings.TrimSpace(rule.User) == "" {
			return &ValidationError{Path: path + ".user", Err: fmt.Errorf("user must not be empty")}
		}
		if len(c.Users) > 0 && !c.knowsUser(rule.User) {
			return &ValidationError{Path: path + ".user", Err: fmt.Errorf("user %q is not listed in users", rule.User)}
		}
	}
	for key, user := range c.SwitchHotkeys {
		if strings.TrimSpace(key) == "" {
			return &ValidationError{Path: "switch_hotkeys", Err: fmt.Errorf("switch_hotkeys contains an empty key")}
		}
		if strings.TrimSpace(user) == "" {
			return &ValidationError{Path: "switch_hotkeys." + key, Err: fmt.Errorf("user must not be empty")}
		}
	}
	switch c.PaletteBackend {
	case "auto", "rofi", "dmenu":
	default:
		return &ValidationError{Path: "palette_backend", Err: fmt.Errorf("palette_backend must be one of: auto, rofi, dmenu")}
	}
	if c.BannerMs < 0 {
		return &ValidationError{Path: "banner_ms", Err: fmt.Errorf("banner_ms must be >= 0")}
	}
	if _, ok := banner.ParseCorner(c.BannerCorner); !ok {
		return &ValidationError{Path: "banner_corner", Err: fmt.Errorf("banner_corner must be one of: top-right, top-left, bottom-right, bottom-left")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	return nil
}

func (c *Config) knowsUser(user string) bool {
	for _, u := range c.Users {
		if u == user {
			return true
		}
	}
	return false
}

// OwnershipMode returns the parsed mode. Validate must have succeeded.
func (c *Config) OwnershipMode() ownership.Mode {
	mode, _ := ownership.ParseMode(c.Mode)
	return mode
}

// AnimationSpeed returns the parsed animation speed.
func (c *Config) AnimationSpeed() ownership.AnimationSpeed {
	speed, _ := ownership.ParseAnimationSpeed(c.Animation.Speed)
	return speed
}

func (c *Config) SwitchDuration() time.Duration {
	return time.Duration(c.Animation.SwitchDurationMs) * time.Millisecond
}

func (c *Config) TeleportDuration() time.Duration {
	return time.Duration(c.Animation.TeleportDurationMs) * time.Millisecond
}

func (c *Config) TransientDuration() time.Duration {
	return time.Duration(c.Animation.TransientDurationMs) * time.Millisecond
}

// FrameInterval is the tick period used while an animation runs.
func (c *Config) FrameInterval() time.Duration {
	if c.Animation.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Animation.FrameRate)
}

// BannerDuration returns zero when the banner is disabled.
func (c *Config) BannerDuration() time.Duration {
	return time.Duration(c.BannerMs) * time.Millisecond
}

// BannerPlacement returns the parsed banner corner.
func (c *Config) BannerPlacement() banner.Corner {
	corner, _ := banner.ParseCorner(c.BannerCorner)
	return corner
}

// ReconcileInterval returns zero when reconciliation is disabled.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OwnerForClass returns the user of the first rule matching class. Matching
// is case-insensitive on either the instance or the class part of WM_CLASS.
func (c *Config) OwnerForClass(instance, class string) (ownership.UserID, bool) {
	for _, rule := range c.Rules {
		if strings.EqualFold(rule.Class, class) || strings.EqualFold(rule.Class, instance) {
			return ownership.UserID(rule.User), true
		}
	}
	return "", false
}

// AllUsers returns the configured users plus any user referenced by rules
// or hotkeys, sorted.
func (c *Config) AllUsers() []ownership.UserID {
	set := map[string]struct{}{c.InitialUser: {}}
	for _, u := range c.Users {
		set[u] = struct{}{}
	}
	for _, rule := range c.Rules {
		set[rule.User] = struct{}{}
	}
	for _, u := range c.SwitchHotkeys {
		set[u] = struct{}{}
	}
	out := make([]ownership.UserID, 0, len(set))
	for u := range set {
		if u != "" {
			out = append(out, ownership.UserID(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
