//go:build windows

package instance

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func defaultSocketPath() string {
	return `\\.\pipe\snipee`
}

func dial(path string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(path, &timeout)
}

func listen(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

func cleanup(string) {}
