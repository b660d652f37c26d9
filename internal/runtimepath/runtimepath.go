package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	socketName   = "multidesk.sock"
	registryName = "multidesk-owners.json"

	// SocketEnv names a socket path that replaces the per-session default,
	// so a test daemon can run next to the real one.
	SocketEnv = "MULTIDESK_SOCKET"
)

// Dir is the per-login directory holding the daemon socket and the owner
// registry. It is $XDG_RUNTIME_DIR when that is an absolute path, else
// /run/user/<uid> when the session manager made one, else a private
// directory under /tmp that Dir creates.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); filepath.IsAbs(dir) {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	dir := fmt.Sprintf("/tmp/multidesk-runtime-%d", uid)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

// SocketPath is where the daemon listens and clients dial.
func SocketPath() (string, error) {
	if path := os.Getenv(SocketEnv); path != "" {
		return path, nil
	}
	return inDir(socketName)
}

// RegistryPath is the owner registry file. It lives as long as the login
// session, so owners survive a daemon restart but not a logout.
func RegistryPath() (string, error) {
	return inDir(registryName)
}

func inDir(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
