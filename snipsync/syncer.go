// Package snipsync keeps the master snippet set in step with a remote
// XML document.
package snipsync

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"markestedt/snipee/snippets"
)

// DefaultInterval is the periodic sync interval
const DefaultInterval = 5 * time.Minute

// Result is the outcome of one sync, shaped for the command surface
type Result struct {
	Success  bool       `json:"success"`
	Error    string     `json:"error,omitempty"`
	LastSync *time.Time `json:"lastSync"`
	Count    int        `json:"count"`
}

// Syncer fetches, parses and merges the remote snippet document
type Syncer struct {
	library *snippets.Library
	fetcher Fetcher
	now     func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	observers []func(Result)
}

// New creates a syncer for library using fetcher
func New(library *snippets.Library, fetcher Fetcher) *Syncer {
	return &Syncer{
		library: library,
		fetcher: fetcher,
		now:     time.Now,
	}
}

// OnSync registers fn to receive every sync result
func (s *Syncer) OnSync(fn func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Sync runs one sync. Calls made while a sync is in flight wait for it
// and share its result. On failure the stored master set is unchanged.
// The sync is detached from ctx cancellation so one caller going away
// cannot fail the result shared with the others; the fetcher timeout
// bounds it instead.
func (s *Syncer) Sync(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)
	v, _, shared := s.group.Do("sync", func() (any, error) {
		res := s.sync(ctx)

		s.mu.Lock()
		observers := slices.Clone(s.observers)
		s.mu.Unlock()
		for _, fn := range observers {
			fn(res)
		}

		return res, nil
	})
	if shared {
		slog.Debug("Joined in-flight snippet sync")
	}
	return v.(Result)
}

func (s *Syncer) sync(ctx context.Context) Result {
	res, err := s.fetchAndMerge(ctx)
	if err == nil {
		slog.Info("Snippet sync completed", "snippets", res.Count)
		return res
	}

	if errors.Is(err, ErrNoSource) {
		slog.Debug("Snippet sync skipped", "reason", err)
	} else {
		slog.Error("Snippet sync failed", "error", err)
	}

	res = Result{Success: false, Error: err.Error()}
	if last, lerr := s.library.LastSync(ctx); lerr == nil && !last.IsZero() {
		res.LastSync = &last
	}
	if m, merr := s.library.Master(ctx); merr == nil {
		res.Count = len(m.Snippets)
	}
	return res
}

func (s *Syncer) fetchAndMerge(ctx context.Context) (Result, error) {
	raw, err := s.library.MasterURL(ctx)
	if err != nil {
		return Result{}, err
	}

	src, err := ResolveURL(raw)
	if err != nil {
		return Result{}, err
	}

	body, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return Result{}, err
	}

	remote, err := Parse(body)
	if err != nil {
		return Result{}, err
	}

	at := s.now().UTC()
	merged, err := s.library.UpdateMaster(ctx, at, func(local snippets.Master) (snippets.Master, error) {
		return Merge(local, remote), nil
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Success: true, LastSync: &at, Count: len(merged.Snippets)}, nil
}

// Run syncs once immediately and then every interval until ctx is done
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.Sync(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}
