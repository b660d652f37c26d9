package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/multidesk/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with payload and decodes the response data into out
// when out is non-nil.
func (c *Client) call(command CommandType, payload interface{}, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows retrieves every window the daemon tracks.
func (c *Client) ListWindows() ([]WindowInfo, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// GetOwner returns the owner of window.
func (c *Client) GetOwner(window uint32) (*OwnerData, error) {
	var data OwnerData
	if err := c.call(CommandGetOwner, WindowPayload{Window: window}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SetOwner makes user the permanent owner of window.
func (c *Client) SetOwner(window uint32, user string) error {
	return c.call(CommandSetOwner, SetOwnerPayload{Window: window, User: user}, nil)
}

// ShowForUser presents window on user's desktop. It reports whether the
// window is now shown there.
func (c *Client) ShowForUser(window uint32, user string, follow bool) (bool, error) {
	var data ShowForUserData
	payload := ShowForUserPayload{Window: window, User: user, Follow: follow}
	if err := c.call(CommandShowForUser, payload, &data); err != nil {
		return false, err
	}
	return data.Shown, nil
}

// SwitchUser makes user the active user.
func (c *Client) SwitchUser(user string) error {
	return c.call(CommandSwitchUser, SwitchUserPayload{User: user}, nil)
}

// VisibleOwners returns the owners of windows currently on screen.
func (c *Client) VisibleOwners() (*VisibleOwnersData, error) {
	var data VisibleOwnersData
	if err := c.call(CommandVisibleOwners, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ShouldNotify asks whether a notification for user may be shown.
func (c *Client) ShouldNotify(user string, popup bool) (bool, error) {
	var data ShouldNotifyData
	if err := c.call(CommandShouldNotify, ShouldNotifyPayload{User: user, Popup: popup}, &data); err != nil {
		return false, err
	}
	return data.Show, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
