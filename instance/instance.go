// Package instance enforces a single running snipee per user. The first
// process listens on a local socket; later launches ask it to show its
// popup and exit.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Acquire when another instance answered
var ErrAlreadyRunning = errors.New("snipee is already running")

const (
	activateMessage = "activate"

	dialTimeout = time.Second
	readTimeout = 2 * time.Second
)

// SocketPath returns the socket or pipe address, honouring $SNIPEE_SOCKET
func SocketPath() string {
	if s := os.Getenv("SNIPEE_SOCKET"); s != "" {
		return s
	}
	return defaultSocketPath()
}

// Guard holds the instance lock until closed
type Guard struct {
	ln   net.Listener
	path string
	wg   sync.WaitGroup
}

// Acquire claims the instance lock. If another instance is running it is
// sent an activate request and ErrAlreadyRunning is returned. onActivate
// runs whenever a later launch contacts this instance.
func Acquire(onActivate func()) (*Guard, error) {
	path := SocketPath()

	if conn, err := dial(path, dialTimeout); err == nil {
		defer conn.Close()
		if _, err := fmt.Fprintln(conn, activateMessage); err != nil {
			slog.Warn("Failed to signal running instance", "error", err)
		}
		return nil, ErrAlreadyRunning
	}

	ln, err := listen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}

	g := &Guard{ln: ln, path: path}
	g.wg.Add(1)
	go g.serve(onActivate)

	slog.Debug("Instance lock acquired", "path", path)
	return g, nil
}

func (g *Guard) serve(onActivate func()) {
	defer g.wg.Done()

	for {
		conn, err := g.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("Failed to accept instance connection", "error", err)
			continue
		}
		go handle(conn, onActivate)
	}
}

func handle(conn net.Conn, onActivate func()) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	switch msg := strings.TrimSpace(scanner.Text()); msg {
	case activateMessage:
		slog.Info("Activation requested by second launch")
		if onActivate != nil {
			onActivate()
		}
	default:
		slog.Warn("Unknown instance message", "message", msg)
	}
}

// Close releases the lock
func (g *Guard) Close() error {
	err := g.ln.Close()
	g.wg.Wait()
	cleanup(g.path)
	return err
}
