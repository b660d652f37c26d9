package ipc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandGetOwner      CommandType = "GET_OWNER"
	CommandSetOwner      CommandType = "SET_OWNER"
	CommandShowForUser   CommandType = "SHOW_FOR_USER"
	CommandSwitchUser    CommandType = "SWITCH_USER"
	CommandVisibleOwners CommandType = "VISIBLE_OWNERS"
	CommandShouldNotify  CommandType = "SHOULD_NOTIFY"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	ActiveUser       string   `json:"active_user"`
	Users            []string `json:"users"`
	Mode             string   `json:"mode"`
	AnimationSpeed   string   `json:"animation_speed"`
	AnimationRunning bool     `json:"animation_running"`
	WindowCount      int      `json:"window_count"`
	OwnedCount       int      `json:"owned_count"`
	Shared           bool     `json:"shared"`
	UptimeSeconds    int64    `json:"uptime_seconds"`
	DaemonRunning    bool     `json:"daemon_running"`
}

// WindowInfo describes one tracked top-level window.
type WindowInfo struct {
	ID           uint32 `json:"id"`
	Instance     string `json:"instance,omitempty"`
	Class        string `json:"class,omitempty"`
	Title        string `json:"title,omitempty"`
	Owner        string `json:"owner,omitempty"`
	PresentedTo  string `json:"presented_to,omitempty"`
	State        string `json:"state"`
	Visible      bool   `json:"visible"`
	TransientFor uint32 `json:"transient_for,omitempty"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

type WindowPayload struct {
	Window uint32 `json:"window"`
}

// OwnerData represents the data returned by GET_OWNER
type OwnerData struct {
	Window      uint32 `json:"window"`
	Owner       string `json:"owner,omitempty"`
	PresentedTo string `json:"presented_to,omitempty"`
	// OnActiveDesktop reports whether the window belongs on the active
	// user's desktop right now.
	OnActiveDesktop bool `json:"on_active_desktop"`
}

type SetOwnerPayload struct {
	Window uint32 `json:"window"`
	User   string `json:"user"`
}

type ShowForUserPayload struct {
	Window uint32 `json:"window"`
	User   string `json:"user"`
	// Follow switches to User and focuses the window afterwards.
	Follow bool `json:"follow,omitempty"`
}

type ShowForUserData struct {
	Shown bool `json:"shown"`
}

type SwitchUserPayload struct {
	User string `json:"user"`
}

// VisibleOwnersData represents the data returned by VISIBLE_OWNERS
type VisibleOwnersData struct {
	ActiveUser string   `json:"active_user"`
	Owners     []string `json:"owners"`
}

type ShouldNotifyPayload struct {
	User  string `json:"user"`
	Popup bool   `json:"popup,omitempty"`
}

type ShouldNotifyData struct {
	Show bool `json:"show"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseWindowID accepts a window id in decimal or 0x-prefixed hex, the way
// xprop and xwininfo print it.
func ParseWindowID(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return uint32(id), nil
}

// FormatWindowID renders id the way ParseWindowID reads it back.
func FormatWindowID(id uint32) string {
	return fmt.Sprintf("0x%x", id)
}
