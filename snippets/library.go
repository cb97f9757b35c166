package snippets

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"markestedt/snipee/storage"
)

// Personal is the locally owned snippet collection
type Personal struct {
	Folders  []string  `json:"folders"`
	Snippets []Snippet `json:"snippets"`
}

// Library reads and writes snippet state in the settings store
type Library struct {
	store storage.Store

	// mu serialises read-modify-write cycles on the master set
	mu       sync.Mutex
	onChange []func()
}

// NewLibrary creates a library backed by store
func NewLibrary(store storage.Store) *Library {
	return &Library{store: store}
}

// OnPersonalChange registers fn to run after personal snippets are saved
func (l *Library) OnPersonalChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Personal returns the personal folders and snippets
func (l *Library) Personal(ctx context.Context) (Personal, error) {
	p := Personal{Snippets: []Snippet{}}

	found, err := storage.GetJSON(ctx, l.store, storage.KeyPersonalFolders, &p.Folders)
	if err != nil {
		return Personal{}, err
	}
	if !found {
		p.Folders = []string{DefaultFolder}
	}

	if _, err := storage.GetJSON(ctx, l.store, storage.KeyPersonalSnippets, &p.Snippets); err != nil {
		return Personal{}, err
	}
	return p, nil
}

// SavePersonalFolders replaces the ordered personal folder list
func (l *Library) SavePersonalFolders(ctx context.Context, folders []string) error {
	if folders == nil {
		folders = []string{}
	}
	if err := storage.SetJSON(ctx, l.store, storage.KeyPersonalFolders, folders); err != nil {
		return fmt.Errorf("failed to save personal folders: %w", err)
	}
	return nil
}

// SavePersonalSnippets replaces the personal snippets, assigning ids to
// new ones, and returns the stored list.
func (l *Library) SavePersonalSnippets(ctx context.Context, snips []Snippet) ([]Snippet, error) {
	snips = slices.Clone(snips)
	if snips == nil {
		snips = []Snippet{}
	}
	for i := range snips {
		if snips[i].ID == "" {
			snips[i].ID = uuid.NewString()
		}
		if snips[i].Folder == "" {
			snips[i].Folder = DefaultFolder
		}
	}

	if err := storage.SetJSON(ctx, l.store, storage.KeyPersonalSnippets, snips); err != nil {
		return nil, fmt.Errorf("failed to save personal snippets: %w", err)
	}

	l.mu.Lock()
	observers := slices.Clone(l.onChange)
	l.mu.Unlock()
	for _, fn := range observers {
		fn()
	}

	return snips, nil
}

// Master returns the cached master set
func (l *Library) Master(ctx context.Context) (Master, error) {
	m := Master{Snippets: []Snippet{}}
	if _, err := storage.GetJSON(ctx, l.store, storage.KeyMasterSnippets, &m); err != nil {
		return Master{}, err
	}
	if m.Snippets == nil {
		m.Snippets = []Snippet{}
	}
	if m.Folders == nil {
		m.Folders = DistinctFolders(m.Snippets)
	}
	return m, nil
}

// LastSync returns the time of the last successful sync, zero if never
func (l *Library) LastSync(ctx context.Context) (time.Time, error) {
	raw, err := storage.GetString(ctx, l.store, storage.KeyLastSync, "")
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync time: %w", err)
	}
	return t, nil
}

// UpdateMaster runs fn on the current master set and commits the result
// together with the sync time in one transaction. fn returning an error
// leaves the store untouched.
func (l *Library) UpdateMaster(ctx context.Context, at time.Time, fn func(Master) (Master, error)) (Master, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.Master(ctx)
	if err != nil {
		return Master{}, err
	}

	next, err := fn(current)
	if err != nil {
		return Master{}, err
	}

	values := make(map[string][]byte, 2)
	if values[storage.KeyMasterSnippets], err = storage.EncodeJSON(next); err != nil {
		return Master{}, fmt.Errorf("failed to encode master snippets: %w", err)
	}
	if !at.IsZero() {
		if values[storage.KeyLastSync], err = storage.EncodeJSON(at.UTC().Format(time.RFC3339Nano)); err != nil {
			return Master{}, fmt.Errorf("failed to encode last sync time: %w", err)
		}
	}

	if err := l.store.SetMany(ctx, values); err != nil {
		return Master{}, fmt.Errorf("failed to save master snippets: %w", err)
	}
	return next, nil
}

// SetMasterDescription overrides the local description of a master
// snippet. The override survives re-sync while the remote description
// stays empty.
func (l *Library) SetMasterDescription(ctx context.Context, id, description string) error {
	_, err := l.UpdateMaster(ctx, time.Time{}, func(m Master) (Master, error) {
		i := slices.IndexFunc(m.Snippets, func(s Snippet) bool { return s.ID == id })
		if i < 0 {
			return m, ErrNotFound
		}
		m.Snippets[i].Description = description
		return m, nil
	})
	return err
}

// MasterURL returns the configured remote snippet source
func (l *Library) MasterURL(ctx context.Context) (string, error) {
	return storage.GetString(ctx, l.store, storage.KeyMasterSnippetURL, "")
}

// SetMasterURL stores the remote snippet source
func (l *Library) SetMasterURL(ctx context.Context, url string) error {
	return storage.SetString(ctx, l.store, storage.KeyMasterSnippetURL, url)
}

// HiddenFolders returns the folder names hidden from the popups
func (l *Library) HiddenFolders(ctx context.Context) ([]string, error) {
	folders := []string{}
	if _, err := storage.GetJSON(ctx, l.store, storage.KeyHiddenFolders, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// SetHiddenFolders replaces the hidden folder list
func (l *Library) SetHiddenFolders(ctx context.Context, folders []string) error {
	if folders == nil {
		folders = []string{}
	}
	return storage.SetJSON(ctx, l.store, storage.KeyHiddenFolders, folders)
}
