package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	ActiveUser       string   `json:"active_user"`
	Users            []string `json:"users"`
	Mode             string   `json:"mode"`
	AnimationRunning bool     `json:"animation_running"`
	WindowCount      int      `json:"window_count"`
	OwnedCount       int      `json:"owned_count"`
	VisibleOwners    []string `json:"visible_owners"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Owner string `json:"owner,omitempty" jsonschema:"Only list windows owned by this user"`
	Class string `json:"class,omitempty" jsonschema:"Only list windows whose WM_CLASS class or instance matches (case-insensitive)"`
}

// WindowSummary describes a single window.
type WindowSummary struct {
	Window       string `json:"window"`
	Class        string `json:"class,omitempty"`
	Title        string `json:"title,omitempty"`
	Owner        string `json:"owner,omitempty"`
	PresentedTo  string `json:"presented_to,omitempty"`
	State        string `json:"state"`
	Visible      bool   `json:"visible"`
	TransientFor string `json:"transient_for,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowSummary `json:"windows"`
}

// WindowInput identifies a window.
type WindowInput struct {
	Window string `json:"window" jsonschema:"required,X11 window id in hex (0x3a00007) or decimal"`
}

// GetWindowOwnerOutput is the output for the get_window_owner tool.
type GetWindowOwnerOutput struct {
	Window          string `json:"window"`
	Owner           string `json:"owner,omitempty"`
	PresentedTo     string `json:"presented_to,omitempty"`
	OnActiveDesktop bool   `json:"on_active_desktop"`
}

// SetWindowOwnerInput is the input for the set_window_owner tool.
type SetWindowOwnerInput struct {
	Window string `json:"window" jsonschema:"required,X11 window id in hex (0x3a00007) or decimal"`
	User   string `json:"user" jsonschema:"required,User that permanently owns the window"`
}

// SetWindowOwnerOutput is the output for the set_window_owner tool.
type SetWindowOwnerOutput struct {
	Window string `json:"window"`
	Owner  string `json:"owner"`
}

// ShowWindowForUserInput is the input for the show_window_for_user tool.
type ShowWindowForUserInput struct {
	Window string `json:"window" jsonschema:"required,X11 window id in hex (0x3a00007) or decimal"`
	User   string `json:"user" jsonschema:"required,User whose desktop should display the window"`
	Follow bool   `json:"follow,omitempty" jsonschema:"When true, also switch to the user and focus the window"`
}

// ShowWindowForUserOutput is the output for the show_window_for_user tool.
type ShowWindowForUserOutput struct {
	Window string `json:"window"`
	User   string `json:"user"`
	// Shown is true when the window moved to another desktop.
	Shown bool `json:"shown"`
}

// SwitchUserInput is the input for the switch_user tool.
type SwitchUserInput struct {
	User string `json:"user" jsonschema:"required,User to make active"`
}

// GetVisibleOwnersOutput is the output for the get_visible_owners tool.
type GetVisibleOwnersOutput struct {
	ActiveUser string   `json:"active_user"`
	Owners     []string `json:"owners"`
}

// SwitchUserOutput is the output for the switch_user tool.
type SwitchUserOutput struct {
	PreviousUser string `json:"previous_user"`
	ActiveUser   string `json:"active_user"`
}
