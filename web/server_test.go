package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeAutomation struct {
	mu        sync.Mutex
	clipboard string
	pastes    int
}

func (f *fakeAutomation) Name() string { return "fake" }

func (f *fakeAutomation) ReadClipboardText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clipboard, nil
}

func (f *fakeAutomation) WriteClipboardText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clipboard = text
	return nil
}

func (f *fakeAutomation) HasAutomationPermission() bool { return true }
func (f *fakeAutomation) RequestAutomationPermission()  {}

func (f *fakeAutomation) ForegroundApplication(ctx context.Context) (platform.App, error) {
	return platform.App{ID: "editor", PID: 1, Name: "Editor"}, nil
}

func (f *fakeAutomation) ActivateApplication(ctx context.Context, app platform.App) error {
	return nil
}

func (f *fakeAutomation) SendPasteKeystroke(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pastes++
	return nil
}

func (f *fakeAutomation) OpenURL(url string) error { return nil }

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.body, f.err
}

type fakeRegistrar struct{}

type noopRegistration struct{}

func (noopRegistration) Unregister() error { return nil }

func (fakeRegistrar) Register(acc hotkeys.Accelerator, fn func()) (hotkeys.Registration, error) {
	return noopRegistration{}, nil
}

type testEnv struct {
	server     *Server
	handler    http.Handler
	automation *fakeAutomation
	fetcher    *fakeFetcher
	cfg        *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	cfg.General.ExportDir = filepath.Join(dir, "exports")

	db, err := storage.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hist, err := history.New(ctx, db, history.DefaultMaxEntries)
	require.NoError(t, err)

	automation := &fakeAutomation{}
	fetcher := &fakeFetcher{}
	lib := snippets.NewLibrary(db)
	popups := popup.NewManager()

	coord := coordinator.New(automation, coordinator.Options{
		Popups:   popups,
		Recorder: db,
		Timing:   coordinator.Timing{HideDelay: time.Millisecond},
	})

	expander := postprocess.NewExpander(func() string {
		name, _ := storage.GetString(ctx, db, storage.KeyUserName, "")
		return name
	})

	srv := NewServer(cfg, Deps{
		DB:          db,
		History:     hist,
		Library:     lib,
		Syncer:      snipsync.New(lib, fetcher),
		Coordinator: coord,
		Expander:    expander,
		Hotkeys:     hotkeys.NewManager(db, fakeRegistrar{}, hotkeys.RetryPolicy{}),
		Popups:      popups,
		Automation:  automation,
	})

	return &testEnv{
		server:     srv,
		handler:    srv.Handler(),
		automation: automation,
		fetcher:    fetcher,
		cfg:        cfg,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestItems_ReturnsHistoryAndSnippets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.server.History.Add(ctx, "copied")
	require.NoError(t, err)
	_, err = env.server.Library.SavePersonalSnippets(ctx, []snippets.Snippet{{Title: "t", Content: "c"}})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items struct {
		History          []history.Entry    `json:"history"`
		PersonalSnippets []snippets.Snippet `json:"personalSnippets"`
		MasterSnippets   []snippets.Snippet `json:"masterSnippets"`
		LastSync         *time.Time         `json:"lastSync"`
		HasPermission    bool               `json:"hasPermission"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))

	require.Len(t, items.History, 1)
	assert.Equal(t, "copied", items.History[0].Content)
	require.Len(t, items.PersonalSnippets, 1)
	assert.Equal(t, snippets.DefaultFolder, items.PersonalSnippets[0].Folder)
	assert.Empty(t, items.MasterSnippets)
	assert.Nil(t, items.LastSync)
	assert.True(t, items.HasPermission)
}

func TestPaste_SnippetExpandsVariables(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/settings/user-name", `{"name":"山田"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/clipboard/paste", `{"text":"{名前}です","source":"snippet"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[coordinator.PasteResult](t, rec)
	assert.True(t, result.KeystrokeSent)
	assert.Equal(t, "山田です", env.automation.clipboard)

	pastes, err := env.server.DB.GetPastes(10, 0)
	require.NoError(t, err)
	require.Len(t, pastes, 1)
	assert.Equal(t, "snippet", pastes[0].Source)
}

func TestPaste_HistoryTextIsVerbatim(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/clipboard/paste", `{"text":"{名前}","source":"history"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{名前}", env.automation.clipboard)
}

func TestCopy_WritesClipboardWithoutPasting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/clipboard/copy", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", env.automation.clipboard)
	assert.Zero(t, env.automation.pastes)
}

func TestHistory_PinDeleteClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, _, err := env.server.History.Add(ctx, "a")
	require.NoError(t, err)
	b, _, err := env.server.History.Add(ctx, "b")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/history/"+a.ID+"/pin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"pinned": true}, decodeBody[map[string]bool](t, rec))
	assert.Equal(t, []string{a.ID}, env.server.History.Pinned())

	rec = env.do(t, http.MethodDelete, "/api/history/"+b.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.server.History.Entries(), 1)

	rec = env.do(t, http.MethodDelete, "/api/history/"+b.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/history/missing/pin", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.server.History.Entries())
	assert.Empty(t, env.server.History.Pinned())
}

func TestPersonal_PutAndGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/personal",
		`{"folders":["仕事"],"snippets":[{"title":"挨拶","content":"こんにちは","folder":"仕事"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	personal := decodeBody[snippets.Personal](t, rec)
	assert.Equal(t, []string{"仕事"}, personal.Folders)
	require.Len(t, personal.Snippets, 1)
	assert.NotEmpty(t, personal.Snippets[0].ID)

	rec = env.do(t, http.MethodGet, "/api/personal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, personal, decodeBody[snippets.Personal](t, rec))
}

func TestSync_ReportsResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.server.Library.SetMasterURL(ctx, "https://example.com/snippets.xml"))
	env.fetcher.body = []byte(`<folders><folder><title>F</title><snippets>` +
		`<snippet><id>s1</id><title>T</title><content>C</content></snippet>` +
		`</snippets></folder></folders>`)

	rec := env.do(t, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeBody[snipsync.Result](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)
	assert.NotNil(t, res.LastSync)

	env.fetcher.err = errors.New("offline")
	rec = env.do(t, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody[snipsync.Result](t, rec)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	master, err := env.server.Library.Master(ctx)
	require.NoError(t, err)
	assert.Len(t, master.Snippets, 1)
}

func TestMasterDescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.server.Library.UpdateMaster(ctx, time.Time{}, func(m snippets.Master) (snippets.Master, error) {
		m.Snippets = []snippets.Snippet{{ID: "s1", Title: "T", Content: "C", Folder: "F"}}
		return m, nil
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/api/master/s1/description", `{"description":"note"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/master/nope/description", `{"description":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	master, err := env.server.Library.Master(ctx)
	require.NoError(t, err)
	assert.Equal(t, "note", master.Snippets[0].Description)
}

func TestHotkeys_SetValidatesAndPersists(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/hotkeys/main", `{"accelerator":"ctrl+shift+k"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Control+Shift+K", resp["accelerator"])
	assert.Equal(t, true, resp["registered"])

	rec = env.do(t, http.MethodGet, "/api/hotkeys/main", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Control+Shift+K", decodeBody[map[string]string](t, rec)["accelerator"])

	rec = env.do(t, http.MethodPut, "/api/hotkeys/main", `{"accelerator":"K"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/hotkeys/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/hotkeys/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/hotkeys/main", "")
	assert.Equal(t, hotkeys.DefaultBinding(hotkeys.ActionMain), decodeBody[map[string]string](t, rec)["accelerator"])
}

func TestWindowPositionMode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/settings/window-position-mode", "")
	assert.Equal(t, PositionCursor, decodeBody[map[string]string](t, rec)["mode"])

	rec = env.do(t, http.MethodPut, "/api/settings/window-position-mode", `{"mode":"previous"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/settings/window-position-mode", "")
	assert.Equal(t, PositionPrevious, decodeBody[map[string]string](t, rec)["mode"])

	rec = env.do(t, http.MethodPut, "/api/settings/window-position-mode", `{"mode":"center"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHiddenFolders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/settings/hidden-folders", "")
	assert.Equal(t, []string{}, decodeBody[[]string](t, rec))

	rec = env.do(t, http.MethodPut, "/api/settings/hidden-folders", `["A","B"]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/settings/hidden-folders", "")
	assert.Equal(t, []string{"A", "B"}, decodeBody[[]string](t, rec))
}

func TestExport_WritesUnderExportDir(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/export", `{"xml":"<folders/>","filename":"../../evil"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	path := decodeBody[map[string]string](t, rec)["path"]
	assert.Equal(t, filepath.Join(env.cfg.General.ExportDir, "evil.xml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<folders/>", string(data))
}

func TestExport_DefaultsToPersonalSnippets(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.server.Library.SavePersonalSnippets(context.Background(),
		[]snippets.Snippet{{Title: "t", Content: "c"}})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/export", `{"filename":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	path := decodeBody[map[string]string](t, rec)["path"]
	assert.Equal(t, defaultExportName, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>t</title>")
}

func TestExportName(t *testing.T) {
	for in, want := range map[string]string{
		"":              defaultExportName,
		"backup":        "backup.xml",
		"backup.XML":    "backup.XML",
		"dir/notes.txt": "notes.txt.xml",
		"..":            defaultExportName,
	} {
		assert.Equal(t, want, exportName(in), in)
	}
}

func TestPopups_ShowAndHide(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/popups/snippet/show", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, popup.Snippet, env.server.Popups.Visible())

	rec = env.do(t, http.MethodPost, "/api/popups/bogus/show", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/popups/hide", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, popup.Kind(""), env.server.Popups.Visible())

	rec = env.do(t, http.MethodPost, "/api/editor/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.server.Popups.IsOpen(popup.Editor))
}

func TestPermission_CloseMarksGuideShown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/permission/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	shown, err := storage.GetString(context.Background(), env.server.DB, storage.KeyPermissionGuideShown, "")
	require.NoError(t, err)
	assert.Equal(t, "true", shown)
}

func TestConfig_PutValidates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/config", `{"maxHistory":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/config", `{"maxHistory":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, env.server.GetConfig().Clipboard.MaxHistory)

	reloaded, err := config.Load(env.cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, 50, reloaded.Clipboard.MaxHistory)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/clipboard/paste", `{"text":"abc"}`)

	rec := env.do(t, http.MethodGet, "/api/stats?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Overall storage.OverallStats `json:"overall"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Overall.TotalPastes)
	assert.Equal(t, 3, stats.Overall.TotalChars)
}

func TestIsLocalOrigin(t *testing.T) {
	for origin, want := range map[string]bool{
		"":                      true,
		"http://localhost:7375": true,
		"http://127.0.0.1:7375": true,
		"https://evil.example":  false,
		"http://localhost.evil": false,
	} {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, isLocalOrigin(r), origin)
	}
}

func TestPaste_SurvivesCancelledRequest(t *testing.T) {
	env := newTestEnv(t)
	env.server.Coordinator.Capture(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/clipboard/paste",
		strings.NewReader(`{"text":"abc","source":"history"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.automation.pastes)
	assert.False(t, env.server.Coordinator.Session().IsCaptured())

	pastes, err := env.server.DB.GetPastes(10, 0)
	require.NoError(t, err)
	assert.Len(t, pastes, 1)
}

func TestHidePopups_DropsCapturedTarget(t *testing.T) {
	env := newTestEnv(t)

	env.server.Coordinator.Capture(context.Background())
	env.server.Popups.Show(popup.Clipboard)
	require.True(t, env.server.Coordinator.Session().IsCaptured())

	rec := env.do(t, http.MethodPost, "/api/popups/hide", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, env.server.Coordinator.Session().IsCaptured())
	assert.Equal(t, popup.Kind(""), env.server.Popups.Visible())
}

func TestWebSocket_PushesPopupTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.server.Popups.OnChange(env.server.BroadcastPopup)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.server.Hub().Run(ctx)

	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	messages := make(chan Message, 16)
	go func() {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				close(messages)
				return
			}
			messages <- msg
		}
	}()

	// the client registers with the hub after the handshake, so keep
	// toggling until a transition arrives
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg, ok := <-messages:
			require.True(t, ok, "connection closed")
			assert.Equal(t, MessageTypePopup, msg.Type)
			data, ok := msg.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, string(popup.History), data["kind"])
			return
		case <-tick.C:
			env.server.Popups.Show(popup.History)
			env.server.Popups.HideAll()
		case <-deadline:
			t.Fatal("no popup message received")
		}
	}
}

func TestDashboard_PastesHistoryAndFollowsPopups(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.Contains(t, page, `source: "history"`)
	assert.NotContains(t, page, "/api/clipboard/copy")
	assert.Contains(t, page, `msg.type === "popup"`)
}
