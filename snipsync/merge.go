package snipsync

import "markestedt/snipee/snippets"

// Merge reconciles the local master set with the remote snippet list.
// Remote membership and order win: remote snippets replace local ones by
// id, local snippets missing remotely are dropped, and a non-empty local
// description is kept over the remote one. Folders are recomputed.
func Merge(local snippets.Master, remote []snippets.Snippet) snippets.Master {
	localDesc := make(map[string]string, len(local.Snippets))
	for _, s := range local.Snippets {
		if s.Description != "" {
			localDesc[s.ID] = s.Description
		}
	}

	merged := make([]snippets.Snippet, 0, len(remote))
	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		if desc, ok := localDesc[r.ID]; ok {
			r.Description = desc
		}
		merged = append(merged, r)
	}

	return snippets.Master{
		Snippets: merged,
		Folders:  snippets.DistinctFolders(merged),
	}
}
