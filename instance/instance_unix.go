//go:build !windows

package instance

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "snipee.sock")
	}
	return filepath.Join(os.TempDir(), "snipee.sock")
}

func dial(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// listen removes a stale socket left by a crashed run; dial already
// established that nobody is serving it.
func listen(path string) (net.Listener, error) {
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

func cleanup(path string) {
	_ = os.Remove(path)
}
