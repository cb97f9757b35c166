// Package history keeps the clipboard history: a most-recent-first,
// content-deduplicated list with a pin set, persisted to the settings store.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"markestedt/snipee/storage"
)

const (
	// DefaultMaxEntries caps the history length
	DefaultMaxEntries = 100

	entryType = "history"
)

// ErrNotFound is returned for operations on an unknown entry id
var ErrNotFound = errors.New("history entry not found")

// Entry is a single clipboard history item
type Entry struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// History is safe for concurrent use
type History struct {
	mu       sync.Mutex
	store    storage.Store
	max      int
	entries  []Entry
	pinned   []string
	lastID   int64
	now      func() time.Time
	onChange []func([]Entry)
}

// New loads the persisted history. max <= 0 selects DefaultMaxEntries.
func New(ctx context.Context, store storage.Store, max int) (*History, error) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	h := &History{
		store: store,
		max:   max,
		now:   time.Now,
	}

	if _, err := storage.GetJSON(ctx, store, storage.KeyClipboardHistory, &h.entries); err != nil {
		return nil, fmt.Errorf("failed to load clipboard history: %w", err)
	}
	if _, err := storage.GetJSON(ctx, store, storage.KeyPinnedItems, &h.pinned); err != nil {
		return nil, fmt.Errorf("failed to load pinned items: %w", err)
	}

	for _, e := range h.entries {
		if id, err := strconv.ParseInt(e.ID, 10, 64); err == nil && id > h.lastID {
			h.lastID = id
		}
	}
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	h.prunePins()

	slog.Debug("Clipboard history loaded", "entries", len(h.entries), "pinned", len(h.pinned))
	return h, nil
}

// OnChange registers fn to receive a snapshot after every mutation
func (h *History) OnChange(fn func([]Entry)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Add records text as the newest entry. Existing entries with the same
// content are moved to the front with a fresh id, keeping their pin.
// Empty text is ignored and reported as not added.
func (h *History) Add(ctx context.Context, text string) (Entry, bool, error) {
	if text == "" {
		return Entry{}, false, nil
	}

	h.mu.Lock()
	prev := h.save()

	wasPinned := false
	if i := slices.IndexFunc(h.entries, func(e Entry) bool { return e.Content == text }); i >= 0 {
		wasPinned = h.unpin(h.entries[i].ID)
		h.entries = slices.Delete(h.entries, i, i+1)
	}

	entry := h.newEntry(text)
	h.entries = slices.Insert(h.entries, 0, entry)
	if wasPinned {
		h.pinned = append(h.pinned, entry.ID)
	}
	h.evict()

	if err := h.commit(ctx, prev); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Entries returns a copy of the history, newest first
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

// Pinned returns the pinned entry ids in pin order
func (h *History) Pinned() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.pinned)
}

// Delete removes one entry and its pin
func (h *History) Delete(ctx context.Context, id string) error {
	h.mu.Lock()

	i := slices.IndexFunc(h.entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		h.mu.Unlock()
		return ErrNotFound
	}
	prev := h.save()
	h.entries = slices.Delete(h.entries, i, i+1)
	h.unpin(id)

	return h.commit(ctx, prev)
}

// Clear removes every entry and pin
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	prev := h.save()
	h.entries = nil
	h.pinned = nil
	return h.commit(ctx, prev)
}

// TogglePin flips the pin state of id and reports the new state
func (h *History) TogglePin(ctx context.Context, id string) (bool, error) {
	h.mu.Lock()

	if !slices.ContainsFunc(h.entries, func(e Entry) bool { return e.ID == id }) {
		h.mu.Unlock()
		return false, ErrNotFound
	}

	prev := h.save()
	pinned := !h.unpin(id)
	if pinned {
		h.pinned = append(h.pinned, id)
	}

	if err := h.commit(ctx, prev); err != nil {
		return !pinned, err
	}
	return pinned, nil
}

// newEntry assigns a millisecond id that is strictly greater than any
// previous one. Callers hold mu.
func (h *History) newEntry(text string) Entry {
	now := h.now()
	id := now.UnixMilli()
	if id <= h.lastID {
		id = h.lastID + 1
	}
	h.lastID = id

	return Entry{
		ID:        strconv.FormatInt(id, 10),
		Content:   text,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Type:      entryType,
	}
}

// evict drops the oldest unpinned entries until the cap holds. Pinned
// entries are only evicted when nothing else is left to drop; the newest
// entry at index 0 is never a candidate.
func (h *History) evict() {
	for len(h.entries) > h.max {
		victim := len(h.entries) - 1
		for i := len(h.entries) - 1; i > 0; i-- {
			if !slices.Contains(h.pinned, h.entries[i].ID) {
				victim = i
				break
			}
		}
		h.unpin(h.entries[victim].ID)
		h.entries = slices.Delete(h.entries, victim, victim+1)
	}
}

// unpin removes id from the pin set and reports whether it was there
func (h *History) unpin(id string) bool {
	i := slices.Index(h.pinned, id)
	if i < 0 {
		return false
	}
	h.pinned = slices.Delete(h.pinned, i, i+1)
	return true
}

func (h *History) prunePins() {
	h.pinned = slices.DeleteFunc(h.pinned, func(id string) bool {
		return !slices.ContainsFunc(h.entries, func(e Entry) bool { return e.ID == id })
	})
}

// state is a copy of the mutable fields, taken before a change so a failed
// write can be undone
type state struct {
	entries []Entry
	pinned  []string
	lastID  int64
}

// save copies the current state. Callers hold mu.
func (h *History) save() state {
	return state{
		entries: slices.Clone(h.entries),
		pinned:  slices.Clone(h.pinned),
		lastID:  h.lastID,
	}
}

// commit persists state, releases mu and notifies observers. It must be
// called with mu held. When the write fails the in-memory history is reset
// to prev.
func (h *History) commit(ctx context.Context, prev state) error {
	snapshot := slices.Clone(h.entries)
	pinned := slices.Clone(h.pinned)

	if err := h.persist(ctx, snapshot, pinned); err != nil {
		h.entries, h.pinned, h.lastID = prev.entries, prev.pinned, prev.lastID
		h.mu.Unlock()
		return err
	}

	observers := slices.Clone(h.onChange)
	h.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}

func (h *History) persist(ctx context.Context, entries []Entry, pinned []string) error {
	if entries == nil {
		entries = []Entry{}
	}
	if pinned == nil {
		pinned = []string{}
	}

	rawEntries, err := storage.EncodeJSON(entries)
	if err != nil {
		return fmt.Errorf("failed to encode clipboard history: %w", err)
	}
	rawPinned, err := storage.EncodeJSON(pinned)
	if err != nil {
		return fmt.Errorf("failed to encode pinned items: %w", err)
	}

	if err := h.store.SetMany(ctx, map[string][]byte{
		storage.KeyClipboardHistory: rawEntries,
		storage.KeyPinnedItems:      rawPinned,
	}); err != nil {
		return fmt.Errorf("failed to save clipboard history: %w", err)
	}
	return nil
}
