// Package snippets holds the snippet model: locally owned personal
// snippets and the remotely synced, read-only master set.
package snippets

import "errors"

const (
	// DefaultFolder is the personal folder every fresh install starts with
	DefaultFolder = "未分類"

	// UncategorizedFolder names master snippets whose folder has no title
	UncategorizedFolder = "Uncategorized"
)

// ErrNotFound is returned when a snippet id is unknown
var ErrNotFound = errors.New("snippet not found")

// Snippet is a reusable text template
type Snippet struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Folder      string `json:"folder"`
}

// Master is the synced snippet set
type Master struct {
	Snippets []Snippet `json:"snippets"`
	Folders  []string  `json:"folders"`
}

// DistinctFolders returns the folders used by snips in first-appearance order
func DistinctFolders(snips []Snippet) []string {
	seen := make(map[string]struct{}, len(snips))
	folders := make([]string, 0)
	for _, s := range snips {
		if _, ok := seen[s.Folder]; ok {
			continue
		}
		seen[s.Folder] = struct{}{}
		folders = append(folders, s.Folder)
	}
	return folders
}
