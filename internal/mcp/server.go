package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/multidesk/internal/ipc"
)

const (
	ServerName    = "multidesk"
	ServerVersion = "0.1.0"
)

// DaemonClient is the subset of the IPC client the tools use.
type DaemonClient interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	GetOwner(window uint32) (*ipc.OwnerData, error)
	SetOwner(window uint32, user string) error
	ShowForUser(window uint32, user string, follow bool) (bool, error)
	SwitchUser(user string) error
	VisibleOwners() (*ipc.VisibleOwnersData, error)
}

var _ DaemonClient = (*ipc.Client)(nil)

// Server is the MCP server exposing window ownership to assistants. It holds
// no state of its own; every tool forwards to the running daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    DaemonClient
	logger    *slog.Logger
}

// NewServer creates a new MCP server talking to daemon.
func NewServer(daemon DaemonClient, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the active user, known users, sharing mode, window counts and which users currently have windows on screen.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level windows tracked by the daemon with their owner, the user whose desktop shows them, and whether they are mapped. Optionally filter by owner or WM_CLASS.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window_owner",
		Description: "Return the permanent owner of a window and the user whose desktop currently displays it. Unowned windows appear on every desktop.",
	}, s.handleGetWindowOwner)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_owner",
		Description: "Give an unowned window a permanent owner. Ownership cannot be changed once set. The window is hidden if its owner is not the active user.",
	}, s.handleSetWindowOwner)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_window_for_user",
		Description: "Move an owned window to another user's desktop without changing its owner. With follow, switch to that user and focus the window.",
	}, s.handleShowWindowForUser)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_user",
		Description: "Make a user active. Windows on the previous user's desktop fade out and the new user's windows fade in.",
	}, s.handleSwitchUser)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_visible_owners",
		Description: "List the users that own at least one window currently shown on the active desktop. Useful for deciding whether a notification would reach its user.",
	}, s.handleGetVisibleOwners)
}

func (s *Server) handleGetVisibleOwners(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetVisibleOwnersOutput, error) {
	data, err := s.daemon.VisibleOwners()
	if err != nil {
		return nil, GetVisibleOwnersOutput{}, err
	}
	owners := data.Owners
	if owners == nil {
		owners = []string{}
	}
	return nil, GetVisibleOwnersOutput{ActiveUser: data.ActiveUser, Owners: owners}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	out := GetStatusOutput{
		ActiveUser:       st.ActiveUser,
		Users:            st.Users,
		Mode:             st.Mode,
		AnimationRunning: st.AnimationRunning,
		WindowCount:      st.WindowCount,
		OwnedCount:       st.OwnedCount,
		VisibleOwners:    []string{},
	}
	if vis, err := s.daemon.VisibleOwners(); err == nil {
		out.VisibleOwners = vis.Owners
	} else {
		s.logger.Warn("failed to query visible owners", "error", err)
	}
	return nil, out, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]WindowSummary, 0, len(windows))}
	for _, w := range windows {
		if args.Owner != "" && w.Owner != args.Owner {
			continue
		}
		if args.Class != "" && !strings.EqualFold(w.Class, args.Class) && !strings.EqualFold(w.Instance, args.Class) {
			continue
		}
		summary := WindowSummary{
			Window:      ipc.FormatWindowID(w.ID),
			Class:       w.Class,
			Title:       w.Title,
			Owner:       w.Owner,
			PresentedTo: w.PresentedTo,
			State:       w.State,
			Visible:     w.Visible,
		}
		if w.TransientFor != 0 {
			summary.TransientFor = ipc.FormatWindowID(w.TransientFor)
		}
		out.Windows = append(out.Windows, summary)
	}
	return nil, out, nil
}

func (s *Server) handleGetWindowOwner(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, GetWindowOwnerOutput, error) {
	id, err := ipc.ParseWindowID(args.Window)
	if err != nil {
		return nil, GetWindowOwnerOutput{}, err
	}
	data, err := s.daemon.GetOwner(id)
	if err != nil {
		return nil, GetWindowOwnerOutput{}, err
	}
	return nil, GetWindowOwnerOutput{
		Window:          ipc.FormatWindowID(id),
		Owner:           data.Owner,
		PresentedTo:     data.PresentedTo,
		OnActiveDesktop: data.OnActiveDesktop,
	}, nil
}

func (s *Server) handleSetWindowOwner(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWindowOwnerInput) (*mcpsdk.CallToolResult, SetWindowOwnerOutput, error) {
	id, err := ipc.ParseWindowID(args.Window)
	if err != nil {
		return nil, SetWindowOwnerOutput{}, err
	}
	if args.User == "" {
		return nil, SetWindowOwnerOutput{}, fmt.Errorf("user is required")
	}
	if err := s.daemon.SetOwner(id, args.User); err != nil {
		return nil, SetWindowOwnerOutput{}, err
	}
	s.logger.Info("window owner set via mcp", "window", id, "user", args.User)
	return nil, SetWindowOwnerOutput{Window: ipc.FormatWindowID(id), Owner: args.User}, nil
}

func (s *Server) handleShowWindowForUser(_ context.Context, _ *mcpsdk.CallToolRequest, args ShowWindowForUserInput) (*mcpsdk.CallToolResult, ShowWindowForUserOutput, error) {
	id, err := ipc.ParseWindowID(args.Window)
	if err != nil {
		return nil, ShowWindowForUserOutput{}, err
	}
	if args.User == "" {
		return nil, ShowWindowForUserOutput{}, fmt.Errorf("user is required")
	}
	shown, err := s.daemon.ShowForUser(id, args.User, args.Follow)
	if err != nil {
		return nil, ShowWindowForUserOutput{}, err
	}
	return nil, ShowWindowForUserOutput{Window: ipc.FormatWindowID(id), User: args.User, Shown: shown}, nil
}

func (s *Server) handleSwitchUser(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchUserInput) (*mcpsdk.CallToolResult, SwitchUserOutput, error) {
	if args.User == "" {
		return nil, SwitchUserOutput{}, fmt.Errorf("user is required")
	}
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, SwitchUserOutput{}, err
	}
	if err := s.daemon.SwitchUser(args.User); err != nil {
		return nil, SwitchUserOutput{}, err
	}
	return nil, SwitchUserOutput{PreviousUser: st.ActiveUser, ActiveUser: args.User}, nil
}
