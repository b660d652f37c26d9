package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/multidesk/internal/runtimepath"
)

// Controller performs the operations behind IPC commands. Implementations
// must be safe to call from the server's connection goroutines.
type Controller interface {
	Status() (StatusData, error)
	ListWindows() ([]WindowInfo, error)
	GetOwner(window uint32) (OwnerData, error)
	SetOwner(window uint32, user string) error
	ShowForUser(window uint32, user string, follow bool) (bool, error)
	SwitchUser(user string) error
	VisibleOwners() VisibleOwnersData
	ShouldNotify(user string, popup bool) bool
	Reload() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server on the default socket path.
func NewServer(ctrl Controller) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, ctrl), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, ctrl Controller) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		startTime:  time.Now(),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandGetOwner:
		return s.handleGetOwner(req.Payload)
	case CommandSetOwner:
		return s.handleSetOwner(req.Payload)
	case CommandShowForUser:
		return s.handleShowForUser(req.Payload)
	case CommandSwitchUser:
		return s.handleSwitchUser(req.Payload)
	case CommandVisibleOwners:
		return ok(s.ctrl.VisibleOwners())
	case CommandShouldNotify:
		return s.handleShouldNotify(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	if err := s.ctrl.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	log.Println("IPC: Config reloaded successfully")
	return ok(nil)
}

func (s *Server) handleGetStatus() *Response {
	status, err := s.ctrl.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read status: %v", err))
	}
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	status.DaemonRunning = true
	return ok(status)
}

func (s *Server) handleListWindows() *Response {
	windows, err := s.ctrl.ListWindows()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
	}
	return ok(WindowsData{Windows: windows})
}

func (s *Server) handleGetOwner(payload json.RawMessage) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid get-owner payload: %v", err))
	}
	if req.Window == 0 {
		return NewErrorResponse("window is required")
	}
	data, err := s.ctrl.GetOwner(req.Window)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(data)
}

func (s *Server) handleSetOwner(payload json.RawMessage) *Response {
	var req SetOwnerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set-owner payload: %v", err))
	}
	if req.Window == 0 {
		return NewErrorResponse("window is required")
	}
	if req.User == "" {
		return NewErrorResponse("user is required")
	}
	if err := s.ctrl.SetOwner(req.Window, req.User); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set owner: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleShowForUser(payload json.RawMessage) *Response {
	var req ShowForUserPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid show payload: %v", err))
	}
	if req.Window == 0 {
		return NewErrorResponse("window is required")
	}
	if req.User == "" {
		return NewErrorResponse("user is required")
	}
	shown, err := s.ctrl.ShowForUser(req.Window, req.User, req.Follow)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to show window: %v", err))
	}
	return ok(ShowForUserData{Shown: shown})
}

func (s *Server) handleSwitchUser(payload json.RawMessage) *Response {
	var req SwitchUserPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid switch payload: %v", err))
	}
	if req.User == "" {
		return NewErrorResponse("user is required")
	}
	if err := s.ctrl.SwitchUser(req.User); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to switch user: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleShouldNotify(payload json.RawMessage) *Response {
	var req ShouldNotifyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid should-notify payload: %v", err))
	}
	if req.User == "" {
		return NewErrorResponse("user is required")
	}
	return ok(ShouldNotifyData{Show: s.ctrl.ShouldNotify(req.User, req.Popup)})
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}
