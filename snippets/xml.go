package snippets

import (
	"encoding/xml"
	"fmt"
	"slices"
)

// Clipy-compatible export document
type xmlDocument struct {
	XMLName xml.Name    `xml:"folders"`
	Folders []xmlFolder `xml:"folder"`
}

type xmlFolder struct {
	Title    string       `xml:"title"`
	Snippets []xmlSnippet `xml:"snippets>snippet"`
}

type xmlSnippet struct {
	Title       string `xml:"title"`
	Content     string `xml:"content"`
	Description string `xml:"description,omitempty"`
}

// EncodeXML renders snippets grouped by folder. Folders listed in order
// come first in that order, including empty ones; folders only referenced
// by snippets follow in first-appearance order.
func EncodeXML(order []string, snips []Snippet) ([]byte, error) {
	folders := slices.Clone(order)
	for _, f := range DistinctFolders(snips) {
		if !slices.Contains(folders, f) {
			folders = append(folders, f)
		}
	}

	doc := xmlDocument{Folders: make([]xmlFolder, 0, len(folders))}
	for _, name := range folders {
		folder := xmlFolder{Title: name}
		for _, s := range snips {
			if s.Folder != name {
				continue
			}
			folder.Snippets = append(folder.Snippets, xmlSnippet{
				Title:       s.Title,
				Content:     s.Content,
				Description: s.Description,
			})
		}
		doc.Folders = append(doc.Folders, folder)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snippets: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
