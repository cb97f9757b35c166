package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/snipee/config"
	"markestedt/snipee/coordinator"
	"markestedt/snipee/history"
	"markestedt/snipee/hotkeys"
	"markestedt/snipee/platform"
	"markestedt/snipee/popup"
	"markestedt/snipee/postprocess"
	"markestedt/snipee/snippets"
	"markestedt/snipee/snipsync"
	"markestedt/snipee/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     isLocalOrigin,
}

// Deps are the components the command surface drives
type Deps struct {
	DB          *storage.DB
	History     *history.History
	Library     *snippets.Library
	Syncer      *snipsync.Syncer
	Coordinator *coordinator.Coordinator
	Expander    *postprocess.Expander
	Hotkeys     *hotkeys.Manager
	Popups      *popup.Manager
	Automation  platform.Automation
}

// Server is the local HTTP and websocket command surface
type Server struct {
	Deps

	mu     sync.RWMutex
	config *config.Config

	hub             *Hub
	snippetPipeline *postprocess.Pipeline
}

// NewServer creates a server; call Start to serve
func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		Deps:            deps,
		config:          cfg,
		hub:             NewHub(),
		snippetPipeline: postprocess.NewPipeline(deps.Expander.VariableProcessor()),
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PUT /api/config", s.handlePutConfig)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/pastes", s.handlePastes)

	mux.HandleFunc("GET /api/items", s.handleItems)
	mux.HandleFunc("POST /api/clipboard/copy", s.handleCopy)
	mux.HandleFunc("POST /api/clipboard/paste", s.handlePaste)

	mux.HandleFunc("GET /api/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("POST /api/history/{id}/pin", s.handleTogglePin)

	mux.HandleFunc("GET /api/personal", s.handleGetPersonal)
	mux.HandleFunc("PUT /api/personal", s.handlePutPersonal)
	mux.HandleFunc("GET /api/master", s.handleGetMaster)
	mux.HandleFunc("PUT /api/master/{id}/description", s.handlePutMasterDescription)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/export", s.handleExport)

	mux.HandleFunc("GET /api/hotkeys", s.handleGetHotkeys)
	mux.HandleFunc("GET /api/hotkeys/{action}", s.handleGetHotkey)
	mux.HandleFunc("PUT /api/hotkeys/{action}", s.handlePutHotkey)
	mux.HandleFunc("POST /api/hotkeys/reset", s.handleResetHotkeys)

	mux.HandleFunc("GET /api/settings/master-url", s.handleGetMasterURL)
	mux.HandleFunc("PUT /api/settings/master-url", s.handlePutMasterURL)
	mux.HandleFunc("GET /api/settings/window-position-mode", s.handleGetWindowPositionMode)
	mux.HandleFunc("PUT /api/settings/window-position-mode", s.handlePutWindowPositionMode)
	mux.HandleFunc("GET /api/settings/hidden-folders", s.handleGetHiddenFolders)
	mux.HandleFunc("PUT /api/settings/hidden-folders", s.handlePutHiddenFolders)
	mux.HandleFunc("GET /api/settings/user-name", s.handleGetUserName)
	mux.HandleFunc("PUT /api/settings/user-name", s.handlePutUserName)

	mux.HandleFunc("GET /api/permission", s.handleGetPermission)
	mux.HandleFunc("POST /api/permission/request", s.handleRequestPermission)
	mux.HandleFunc("POST /api/permission/close", s.handleClosePermission)

	mux.HandleFunc("GET /api/popups", s.handleGetPopups)
	mux.HandleFunc("POST /api/popups/{kind}/show", s.handleShowPopup)
	mux.HandleFunc("POST /api/popups/hide", s.handleHidePopups)
	mux.HandleFunc("POST /api/editor/open", s.handleOpenEditor)
	mux.HandleFunc("POST /api/editor/close", s.handleCloseEditor)

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// embedded at build time; cannot fail for a valid binary
		panic(fmt.Sprintf("failed to load static files: %v", err))
	}
	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))

	return mux
}

// Start serves on localhost until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	port := s.GetConfig().Web.Port
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Web server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting web server", "port", port, "url", s.URL())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// URL is the dashboard address
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.GetConfig().Web.Port)
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// GetConfig returns the current configuration (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig updates the configuration (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// BroadcastPopup pushes a popup or window transition
func (s *Server) BroadcastPopup(e popup.Event) {
	msgType := MessageTypePopup
	if _, err := popup.ParseKind(string(e.Kind)); err != nil {
		msgType = MessageTypeWindow
	}
	s.hub.BroadcastMessage(Message{Type: msgType, Data: e})
}

// BroadcastHistory pushes the current clipboard history
func (s *Server) BroadcastHistory(entries []history.Entry) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeClipboardUpdated, Data: entries})
}

// BroadcastPersonal tells clients to reload personal snippets
func (s *Server) BroadcastPersonal() {
	s.hub.BroadcastMessage(Message{Type: MessageTypePersonalUpdated})
}

// BroadcastSync pushes a sync result
func (s *Server) BroadcastSync(res snipsync.Result) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeSync, Data: res})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// isLocalOrigin only accepts pages served from localhost
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host, _, err := net.SplitHostPort(trimScheme(origin))
	if err != nil {
		host = trimScheme(origin)
	}
	return host == "localhost" || host == "127.0.0.1" || host == "[::1]" || host == "::1"
}

func trimScheme(origin string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
			return origin[len(prefix):]
		}
	}
	return origin
}
