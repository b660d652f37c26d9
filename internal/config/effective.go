package config

import "fmt"

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}
	if raw.InitialUser != nil {
		cfg.InitialUser = *raw.InitialUser
		if raw.Users == nil {
			// The default user list names the login user; an explicit
			// initial user without a list stands alone.
			cfg.Users = []string{cfg.InitialUser}
		}
	}
	if raw.Users != nil {
		cfg.Users = append([]string(nil), raw.Users...)
		if raw.InitialUser == nil && len(cfg.Users) > 0 && !cfg.knowsUser(cfg.InitialUser) {
			cfg.InitialUser = cfg.Users[0]
		}
	}
	if raw.Mode != nil {
		cfg.Mode = *raw.Mode
	}
	if raw.Animation != nil {
		a := raw.Animation
		if a.Speed != nil {
			cfg.Animation.Speed = *a.Speed
		}
		if a.SwitchDurationMs != nil {
			cfg.Animation.SwitchDurationMs = *a.SwitchDurationMs
		}
		if a.TeleportDurationMs != nil {
			cfg.Animation.TeleportDurationMs = *a.TeleportDurationMs
		}
		if a.TransientDurationMs != nil {
			cfg.Animation.TransientDurationMs = *a.TransientDurationMs
		}
		if a.FrameRate != nil {
			cfg.Animation.FrameRate = *a.FrameRate
		}
	}
	if raw.Rules != nil {
		cfg.Rules = append([]OwnerRule(nil), raw.Rules...)
	}
	if raw.OwnUnmatched != nil {
		cfg.OwnUnmatched = *raw.OwnUnmatched
	}
	for key, user := range raw.SwitchHotkeys {
		cfg.SwitchHotkeys[key] = user
	}
	if raw.PaletteHotkey != nil {
		cfg.PaletteHotkey = *raw.PaletteHotkey
	}
	if raw.PaletteBackend != nil {
		cfg.PaletteBackend = *raw.PaletteBackend
	}
	if raw.BannerMs != nil {
		cfg.BannerMs = *raw.BannerMs
	}
	if raw.BannerCorner != nil {
		cfg.BannerCorner = *raw.BannerCorner
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.ReconcileIntervalSeconds != nil {
		cfg.ReconcileIntervalSeconds = *raw.ReconcileIntervalSeconds
	}

	return cfg
}
