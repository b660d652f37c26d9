package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawAnimation struct {
	Speed               *string `yaml:"speed"`
	SwitchDurationMs    *int    `yaml:"switch_duration_ms"`
	TeleportDurationMs  *int    `yaml:"teleport_duration_ms"`
	TransientDurationMs *int    `yaml:"transient_duration_ms"`
	FrameRate           *int    `yaml:"frame_rate"`
}

// RawConfig mirrors Config with optional fields so that files can be layered.
type RawConfig struct {
	Include                  IncludeList       `yaml:"include"`
	Display                  *string           `yaml:"display"`
	XAuthority               *string           `yaml:"xauthority"`
	InitialUser              *string           `yaml:"initial_user"`
	Users                    []string          `yaml:"users"`
	Mode                     *string           `yaml:"mode"`
	Animation                *RawAnimation     `yaml:"animation"`
	Rules                    []OwnerRule       `yaml:"rules"`
	OwnUnmatched             *bool             `yaml:"own_unmatched"`
	SwitchHotkeys            map[string]string `yaml:"switch_hotkeys"`
	PaletteHotkey            *string           `yaml:"palette_hotkey"`
	PaletteBackend           *string           `yaml:"palette_backend"`
	BannerMs                 *int              `yaml:"banner_ms"`
	BannerCorner             *string           `yaml:"banner_corner"`
	LogLevel                 *string           `yaml:"log_level"`
	ReconcileIntervalSeconds *int              `yaml:"reconcile_interval_seconds"`
}

// merge layers overlay on top of c. Lists replace, maps merge per key and
// rules from later files are appended so they can add owners.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.InitialUser != nil {
		out.InitialUser = overlay.InitialUser
	}
	if overlay.Users != nil {
		out.Users = overlay.Users
	}
	if overlay.Mode != nil {
		out.Mode = overlay.Mode
	}
	if overlay.Animation != nil {
		if out.Animation == nil {
			out.Animation = &RawAnimation{}
		}
		merged := mergeRawAnimation(*out.Animation, *overlay.Animation)
		out.Animation = &merged
	}
	if overlay.Rules != nil {
		rules := make([]OwnerRule, 0, len(out.Rules)+len(overlay.Rules))
		rules = append(rules, out.Rules...)
		rules = append(rules, overlay.Rules...)
		out.Rules = rules
	}
	if overlay.OwnUnmatched != nil {
		out.OwnUnmatched = overlay.OwnUnmatched
	}
	if overlay.SwitchHotkeys != nil {
		hotkeys := make(map[string]string, len(out.SwitchHotkeys)+len(overlay.SwitchHotkeys))
		for k, v := range out.SwitchHotkeys {
			hotkeys[k] = v
		}
		for k, v := range overlay.SwitchHotkeys {
			hotkeys[k] = v
		}
		out.SwitchHotkeys = hotkeys
	}
	if overlay.PaletteHotkey != nil {
		out.PaletteHotkey = overlay.PaletteHotkey
	}
	if overlay.PaletteBackend != nil {
		out.PaletteBackend = overlay.PaletteBackend
	}
	if overlay.BannerMs != nil {
		out.BannerMs = overlay.BannerMs
	}
	if overlay.BannerCorner != nil {
		out.BannerCorner = overlay.BannerCorner
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = overlay.ReconcileIntervalSeconds
	}

	return out
}

func mergeRawAnimation(base RawAnimation, overlay RawAnimation) RawAnimation {
	out := base
	if overlay.Speed != nil {
		out.Speed = overlay.Speed
	}
	if overlay.SwitchDurationMs != nil {
		out.SwitchDurationMs = overlay.SwitchDurationMs
	}
	if overlay.TeleportDurationMs != nil {
		out.TeleportDurationMs = overlay.TeleportDurationMs
	}
	if overlay.TransientDurationMs != nil {
		out.TransientDurationMs = overlay.TransientDurationMs
	}
	if overlay.FrameRate != nil {
		out.FrameRate = overlay.FrameRate
	}
	return out
}
