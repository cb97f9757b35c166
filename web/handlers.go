package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"markestedt/snipee/coordinator"
	"markestedt/snipee/history"
	"markestedt/snipee/hotkeys"
	"markestedt/snipee/popup"
	"markestedt/snipee/snippets"
	"markestedt/snipee/storage"
)

// Window position modes
const (
	PositionCursor   = "cursor"
	PositionPrevious = "previous"
)

const defaultExportName = "snippets.xml"

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "success"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// handleGetConfig returns the editable part of the configuration
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.GetConfig()

	writeJSON(w, map[string]any{
		"webPort":           cfg.Web.Port,
		"exportDir":         cfg.General.ExportDir,
		"pollIntervalMs":    cfg.Clipboard.PollIntervalMs,
		"maxHistory":        cfg.Clipboard.MaxHistory,
		"hideDelayMs":       cfg.Paste.HideDelayMs,
		"activateTimeoutMs": cfg.Paste.ActivateTimeoutMs,
		"syncIntervalSec":   cfg.Sync.IntervalSeconds,
		"automation":        s.Automation.Name(),
	})
}

// handlePutConfig updates the configuration; changes apply on restart
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExportDir         *string `json:"exportDir"`
		PollIntervalMs    *int    `json:"pollIntervalMs"`
		MaxHistory        *int    `json:"maxHistory"`
		HideDelayMs       *int    `json:"hideDelayMs"`
		ActivateTimeoutMs *int    `json:"activateTimeoutMs"`
		SyncIntervalSec   *int    `json:"syncIntervalSec"`
	}
	if !decode(w, r, &req) {
		return
	}

	next := *s.GetConfig()

	if req.ExportDir != nil {
		next.General.ExportDir = *req.ExportDir
	}
	if req.PollIntervalMs != nil {
		next.Clipboard.PollIntervalMs = *req.PollIntervalMs
	}
	if req.MaxHistory != nil {
		next.Clipboard.MaxHistory = *req.MaxHistory
	}
	if req.HideDelayMs != nil {
		next.Paste.HideDelayMs = *req.HideDelayMs
	}
	if req.ActivateTimeoutMs != nil {
		next.Paste.ActivateTimeoutMs = *req.ActivateTimeoutMs
	}
	if req.SyncIntervalSec != nil {
		next.Sync.IntervalSeconds = *req.SyncIntervalSec
	}

	if err := next.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := next.Save(); err != nil {
		slog.Error("Failed to save config", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	s.UpdateConfig(&next)
	writeOK(w)
}

// handleStats returns paste statistics for the last ?days (default 7)
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	overall, err := s.DB.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.DB.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	sources, err := s.DB.GetSourceStats(days)
	if err != nil {
		slog.Error("Failed to get source stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"overall": overall,
		"daily":   daily,
		"sources": sources,
	})
}

// handlePastes returns the paginated paste log
func (s *Server) handlePastes(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	pastes, err := s.DB.GetPastes(limit, offset)
	if err != nil {
		slog.Error("Failed to get pastes", "error", err)
		http.Error(w, "Failed to get pastes", http.StatusInternalServerError)
		return
	}

	total, err := s.DB.GetPasteCount()
	if err != nil {
		slog.Error("Failed to get paste count", "error", err)
		http.Error(w, "Failed to get pastes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"pastes": pastes,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleItems returns everything a popup renders in one call
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personal, err := s.Library.Personal(ctx)
	if err != nil {
		slog.Error("Failed to load personal snippets", "error", err)
		http.Error(w, "Failed to load items", http.StatusInternalServerError)
		return
	}

	master, err := s.Library.Master(ctx)
	if err != nil {
		slog.Error("Failed to load master snippets", "error", err)
		http.Error(w, "Failed to load items", http.StatusInternalServerError)
		return
	}

	var lastSync *time.Time
	if at, err := s.Library.LastSync(ctx); err == nil && !at.IsZero() {
		lastSync = &at
	}

	writeJSON(w, map[string]any{
		"history":          s.History.Entries(),
		"pinned":           s.History.Pinned(),
		"personalSnippets": personal.Snippets,
		"masterSnippets":   master.Snippets,
		"lastSync":         lastSync,
		"hasPermission":    s.Automation.HasAutomationPermission(),
	})
}

// handleCopy writes text to the clipboard without pasting
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := s.Coordinator.Copy(r.Context(), req.Text); err != nil {
		slog.Error("Failed to copy to clipboard", "error", err)
		http.Error(w, "Failed to copy to clipboard", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handlePaste pastes into the captured target. Snippet text has its
// variables expanded first.
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req coordinator.PasteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		req.Source = coordinator.SourceText
	}

	// a dropped request must not stop the paste halfway
	ctx := context.WithoutCancel(r.Context())

	if req.Source == coordinator.SourceSnippet {
		text, err := s.snippetPipeline.Process(ctx, req.Text)
		if err != nil {
			slog.Error("Failed to expand snippet", "error", err)
			http.Error(w, "Failed to expand snippet", http.StatusInternalServerError)
			return
		}
		req.Text = text
	}

	result, err := s.Coordinator.Paste(ctx, req)
	if err != nil {
		slog.Error("Failed to paste", "error", err)
		http.Error(w, "Failed to paste", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

// handleGetHistory returns the clipboard history and pinned ids
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"entries": s.History.Entries(),
		"pinned":  s.History.Pinned(),
	})
}

// handleDeleteHistory removes one history entry
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.History.Delete(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "History entry not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete history entry", "error", err, "id", id)
		http.Error(w, "Failed to delete history entry", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleClearHistory removes every history entry and pin
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.History.Clear(r.Context()); err != nil {
		slog.Error("Failed to clear history", "error", err)
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleTogglePin flips the pin of a history entry
func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	pinned, err := s.History.TogglePin(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "History entry not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to toggle pin", "error", err, "id", id)
		http.Error(w, "Failed to toggle pin", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"pinned": pinned})
}

// handleGetPersonal returns personal folders and snippets
func (s *Server) handleGetPersonal(w http.ResponseWriter, r *http.Request) {
	personal, err := s.Library.Personal(r.Context())
	if err != nil {
		slog.Error("Failed to load personal snippets", "error", err)
		http.Error(w, "Failed to load personal snippets", http.StatusInternalServerError)
		return
	}
	writeJSON(w, personal)
}

// handlePutPersonal replaces the folders and/or snippets that are present
// in the body
func (s *Server) handlePutPersonal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folders  []string           `json:"folders"`
		Snippets []snippets.Snippet `json:"snippets"`
	}
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	if req.Folders != nil {
		if err := s.Library.SavePersonalFolders(ctx, req.Folders); err != nil {
			slog.Error("Failed to save personal folders", "error", err)
			http.Error(w, "Failed to save personal folders", http.StatusInternalServerError)
			return
		}
	}

	if req.Snippets != nil {
		if _, err := s.Library.SavePersonalSnippets(ctx, req.Snippets); err != nil {
			slog.Error("Failed to save personal snippets", "error", err)
			http.Error(w, "Failed to save personal snippets", http.StatusInternalServerError)
			return
		}
	}

	s.handleGetPersonal(w, r)
}

// handleGetMaster returns the synced snippet set
func (s *Server) handleGetMaster(w http.ResponseWriter, r *http.Request) {
	master, err := s.Library.Master(r.Context())
	if err != nil {
		slog.Error("Failed to load master snippets", "error", err)
		http.Error(w, "Failed to load master snippets", http.StatusInternalServerError)
		return
	}
	writeJSON(w, master)
}

// handlePutMasterDescription overrides a master snippet's description
func (s *Server) handlePutMasterDescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")

	if err := s.Library.SetMasterDescription(r.Context(), id, req.Description); err != nil {
		if errors.Is(err, snippets.ErrNotFound) {
			http.Error(w, "Snippet not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to save description", "error", err, "id", id)
		http.Error(w, "Failed to save description", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleSync runs a manual sync. Sync failures are reported in the body.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Syncer.Sync(context.WithoutCancel(r.Context())))
}

// handleExport writes snippet XML into the export directory. Without an
// xml field the personal snippets are exported.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		XML      string `json:"xml"`
		Filename string `json:"filename"`
	}
	if !decode(w, r, &req) {
		return
	}

	data := []byte(req.XML)
	if req.XML == "" {
		personal, err := s.Library.Personal(r.Context())
		if err != nil {
			slog.Error("Failed to load personal snippets", "error", err)
			http.Error(w, "Failed to export snippets", http.StatusInternalServerError)
			return
		}
		data, err = snippets.EncodeXML(personal.Folders, personal.Snippets)
		if err != nil {
			slog.Error("Failed to encode snippets", "error", err)
			http.Error(w, "Failed to export snippets", http.StatusInternalServerError)
			return
		}
	}

	dir := s.GetConfig().General.ExportDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("Failed to create export directory", "error", err, "dir", dir)
		http.Error(w, "Failed to export snippets", http.StatusInternalServerError)
		return
	}

	path := filepath.Join(dir, exportName(req.Filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("Failed to write export", "error", err, "path", path)
		http.Error(w, "Failed to export snippets", http.StatusInternalServerError)
		return
	}

	slog.Info("Exported snippets", "path", path, "bytes", len(data))
	writeJSON(w, map[string]string{"path": path})
}

// exportName keeps only the base name and forces an .xml extension
func exportName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return defaultExportName
	}
	if !strings.EqualFold(filepath.Ext(name), ".xml") {
		name += ".xml"
	}
	return name
}

// handleGetHotkeys returns every binding and whether it is registered
func (s *Server) handleGetHotkeys(w http.ResponseWriter, r *http.Request) {
	bindings, err := s.Hotkeys.Bindings(r.Context())
	if err != nil {
		slog.Error("Failed to load hotkeys", "error", err)
		http.Error(w, "Failed to load hotkeys", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"bindings":   bindings,
		"registered": s.Hotkeys.Registered(),
	})
}

// handleGetHotkey returns the accelerator of one action
func (s *Server) handleGetHotkey(w http.ResponseWriter, r *http.Request) {
	action, err := hotkeys.ParseAction(r.PathValue("action"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	acc, err := s.Hotkeys.Get(r.Context(), action)
	if errors.Is(err, hotkeys.ErrUnknownAction) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load hotkey", "error", err, "action", action)
		http.Error(w, "Failed to load hotkey", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"action": string(action), "accelerator": acc})
}

// handlePutHotkey rebinds an action. A binding the OS refuses is still
// saved; the response reports the registration error.
func (s *Server) handlePutHotkey(w http.ResponseWriter, r *http.Request) {
	action, err := hotkeys.ParseAction(r.PathValue("action"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var req struct {
		Accelerator string `json:"accelerator"`
	}
	if !decode(w, r, &req) {
		return
	}

	acc, err := hotkeys.ParseAccelerator(req.Accelerator)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := map[string]any{"action": action, "accelerator": acc.String(), "registered": true}
	if err := s.Hotkeys.Set(r.Context(), action, acc.String()); err != nil {
		slog.Warn("Hotkey saved but not registered", "action", action, "error", err)
		resp["registered"] = false
		resp["error"] = err.Error()
	}
	writeJSON(w, resp)
}

// handleResetHotkeys restores the default bindings
func (s *Server) handleResetHotkeys(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"registered": true}
	if err := s.Hotkeys.Reset(r.Context()); err != nil {
		slog.Warn("Hotkeys reset but not all registered", "error", err)
		resp["registered"] = false
		resp["error"] = err.Error()
	}

	bindings, err := s.Hotkeys.Bindings(r.Context())
	if err != nil {
		slog.Error("Failed to load hotkeys", "error", err)
		http.Error(w, "Failed to load hotkeys", http.StatusInternalServerError)
		return
	}
	resp["bindings"] = bindings
	writeJSON(w, resp)
}

// handleGetMasterURL returns the remote snippet source
func (s *Server) handleGetMasterURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.Library.MasterURL(r.Context())
	if err != nil {
		slog.Error("Failed to load master URL", "error", err)
		http.Error(w, "Failed to load master URL", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"url": url})
}

// handlePutMasterURL stores the remote snippet source and syncs from it
func (s *Server) handlePutMasterURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decode(w, r, &req) {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := s.Library.SetMasterURL(ctx, strings.TrimSpace(req.URL)); err != nil {
		slog.Error("Failed to save master URL", "error", err)
		http.Error(w, "Failed to save master URL", http.StatusInternalServerError)
		return
	}

	writeJSON(w, s.Syncer.Sync(ctx))
}

// handleGetWindowPositionMode returns where popups open
func (s *Server) handleGetWindowPositionMode(w http.ResponseWriter, r *http.Request) {
	mode, err := storage.GetString(r.Context(), s.DB, storage.KeyWindowPositionMode, PositionCursor)
	if err != nil {
		slog.Error("Failed to load window position mode", "error", err)
		http.Error(w, "Failed to load window position mode", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"mode": mode})
}

// handlePutWindowPositionMode sets where popups open
func (s *Server) handlePutWindowPositionMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Mode != PositionCursor && req.Mode != PositionPrevious {
		http.Error(w, fmt.Sprintf("unknown window position mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	if err := storage.SetString(r.Context(), s.DB, storage.KeyWindowPositionMode, req.Mode); err != nil {
		slog.Error("Failed to save window position mode", "error", err)
		http.Error(w, "Failed to save window position mode", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleGetHiddenFolders returns the folders hidden from popups
func (s *Server) handleGetHiddenFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.Library.HiddenFolders(r.Context())
	if err != nil {
		slog.Error("Failed to load hidden folders", "error", err)
		http.Error(w, "Failed to load hidden folders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, folders)
}

// handlePutHiddenFolders replaces the hidden folder list
func (s *Server) handlePutHiddenFolders(w http.ResponseWriter, r *http.Request) {
	var folders []string
	if !decode(w, r, &folders) {
		return
	}

	if err := s.Library.SetHiddenFolders(r.Context(), folders); err != nil {
		slog.Error("Failed to save hidden folders", "error", err)
		http.Error(w, "Failed to save hidden folders", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleGetUserName returns the name used by the user-name variables
func (s *Server) handleGetUserName(w http.ResponseWriter, r *http.Request) {
	name, err := storage.GetString(r.Context(), s.DB, storage.KeyUserName, "")
	if err != nil {
		slog.Error("Failed to load user name", "error", err)
		http.Error(w, "Failed to load user name", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"name": name})
}

// handlePutUserName sets the name used by the user-name variables
func (s *Server) handlePutUserName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := storage.SetString(r.Context(), s.DB, storage.KeyUserName, strings.TrimSpace(req.Name)); err != nil {
		slog.Error("Failed to save user name", "error", err)
		http.Error(w, "Failed to save user name", http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

// handleGetPermission reports the automation permission state
func (s *Server) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"hasPermission": s.Automation.HasAutomationPermission(),
		"backend":       s.Automation.Name(),
	})
}

// handleRequestPermission asks the OS for the automation grant
func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	s.Automation.RequestAutomationPermission()
	writeJSON(w, map[string]bool{"hasPermission": s.Automation.HasAutomationPermission()})
}

// handleClosePermission dismisses the permission guide for good
func (s *Server) handleClosePermission(w http.ResponseWriter, r *http.Request) {
	if err := storage.SetString(r.Context(), s.DB, storage.KeyPermissionGuideShown, "true"); err != nil {
		slog.Error("Failed to save permission guide state", "error", err)
		http.Error(w, "Failed to close permission guide", http.StatusInternalServerError)
		return
	}
	s.Popups.CloseWindow(popup.PermissionGuide)
	writeOK(w)
}

// handleGetPopups returns the visible popup, if any
func (s *Server) handleGetPopups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"visible": s.Popups.Visible(),
		"editor":  s.Popups.IsOpen(popup.Editor),
	})
}

// handleShowPopup shows one popup and hides the others
func (s *Server) handleShowPopup(w http.ResponseWriter, r *http.Request) {
	kind, err := popup.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.Popups.Show(kind)
	writeOK(w)
}

// handleHidePopups hides every popup and drops the captured paste target
func (s *Server) handleHidePopups(w http.ResponseWriter, r *http.Request) {
	s.Popups.HideAll()
	s.Coordinator.Session().Clear()
	writeOK(w)
}

// handleOpenEditor opens the snippet editor window
func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	s.Popups.OpenWindow(popup.Editor)
	writeOK(w)
}

// handleCloseEditor closes the snippet editor window
func (s *Server) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	s.Popups.CloseWindow(popup.Editor)
	writeOK(w)
}
