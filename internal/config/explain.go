package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	initial_user
//	users
//	mode
//	animation.speed
//	animation.switch_duration_ms
//	rules.<index>.class
//	own_unmatched
//	switch_hotkeys.<key>
//	log_level
//	reconcile_interval_seconds
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	scalar := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, unknown
		}
		return v, nil
	}

	switch parts[0] {
	case "display":
		return scalar(cfg.Display)
	case "xauthority":
		return scalar(cfg.XAuthority)
	case "initial_user":
		return scalar(cfg.InitialUser)
	case "users":
		return scalar(cfg.Users)
	case "mode":
		return scalar(cfg.Mode)
	case "own_unmatched":
		return scalar(cfg.OwnUnmatched)
	case "palette_hotkey":
		return scalar(cfg.PaletteHotkey)
	case "palette_backend":
		return scalar(cfg.PaletteBackend)
	case "banner_ms":
		return scalar(cfg.BannerMs)
	case "banner_corner":
		return scalar(cfg.BannerCorner)
	case "log_level":
		return scalar(cfg.LogLevel)
	case "reconcile_interval_seconds":
		return scalar(cfg.ReconcileIntervalSeconds)
	case "animation":
		if len(parts) == 1 {
			return cfg.Animation, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "speed":
			return cfg.Animation.Speed, nil
		case "switch_duration_ms":
			return cfg.Animation.SwitchDurationMs, nil
		case "teleport_duration_ms":
			return cfg.Animation.TeleportDurationMs, nil
		case "transient_duration_ms":
			return cfg.Animation.TransientDurationMs, nil
		case "frame_rate":
			return cfg.Animation.FrameRate, nil
		}
		return nil, unknown
	case "rules":
		if len(parts) == 1 {
			return cfg.Rules, nil
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || idx >= len(cfg.Rules) {
			return nil, fmt.Errorf("no rule at index %s", parts[1])
		}
		rule := cfg.Rules[idx]
		if len(parts) == 2 {
			return rule, nil
		}
		if len(parts) != 3 {
			return nil, unknown
		}
		switch parts[2] {
		case "class":
			return rule.Class, nil
		case "user":
			return rule.User, nil
		}
		return nil, unknown
	case "switch_hotkeys":
		if len(parts) == 1 {
			return cfg.SwitchHotkeys, nil
		}
		key := strings.Join(parts[1:], ".")
		user, ok := cfg.SwitchHotkeys[key]
		if !ok {
			return nil, fmt.Errorf("no hotkey %q", key)
		}
		return user, nil
	}
	return nil, unknown
}
