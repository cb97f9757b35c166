package snipsync

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"markestedt/snipee/snippets"
)

// idPrefixRunes is how much content contributes to a derived id
const idPrefixRunes = 100

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("snipee:master-snippet"))

// Parse converts a Clipy-style folder document into a flat snippet list.
// HTML responses yield ErrSharingPermission and documents without a
// folders root yield ErrFormat.
func Parse(data []byte) ([]snippets.Snippet, error) {
	if looksLikeHTML(data) {
		return nil, ErrSharingPermission
	}

	root, err := readTree(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if root == nil || root.name != "folders" {
		return nil, ErrFormat
	}

	result := make([]snippets.Snippet, 0)
	occurrences := make(map[string]int)

	for _, folder := range root.all("folder") {
		folderTitle := folder.text("title")
		if folderTitle == "" {
			folderTitle = snippets.UncategorizedFolder
		}

		for _, list := range folder.all("snippets") {
			for _, el := range list.all("snippet") {
				s := snippets.Snippet{
					ID:          el.attr("id"),
					Title:       el.text("title"),
					Content:     el.text("content"),
					Description: el.text("description"),
					Folder:      folderTitle,
				}
				if s.ID == "" {
					s.ID = el.text("id")
				}
				if s.ID == "" {
					key := derivationKey(s)
					s.ID = deriveID(key, occurrences[key])
					occurrences[key]++
				}
				result = append(result, s)
			}
		}
	}

	return result, nil
}

// derivationKey is the NFC-normalised folder, title and content prefix
func derivationKey(s snippets.Snippet) string {
	prefix := []rune(s.Content)
	if len(prefix) > idPrefixRunes {
		prefix = prefix[:idPrefixRunes]
	}
	return norm.NFC.String(s.Folder + "\x00" + s.Title + "\x00" + string(prefix))
}

// deriveID hashes key; n disambiguates repeated keys within one document
func deriveID(key string, n int) string {
	if n > 0 {
		key += "\x00" + strconv.Itoa(n)
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// looksLikeHTML reports whether the first markup in data is an HTML
// doctype or an html, head or body element.
func looksLikeHTML(data []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.CommentToken:
			// <?xml ...?> prologs tokenize as bogus comments
			continue
		case html.TextToken:
			if strings.TrimSpace(strings.TrimPrefix(string(z.Text()), "\ufeff")) != "" {
				return false
			}
		case html.DoctypeToken:
			fields := strings.Fields(string(z.Text()))
			return len(fields) > 0 && strings.EqualFold(fields[0], "html")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "html", "head", "body":
				return true
			}
			return false
		default:
			return false
		}
	}
}

// node is a minimal element tree with lower-cased names
type node struct {
	name     string
	attrs    map[string]string
	chars    strings.Builder
	children []*node
}

func (n *node) all(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) text(name string) string {
	for _, c := range n.children {
		if c.name == name {
			return strings.TrimSpace(c.chars.String())
		}
	}
	return ""
}

func (n *node) attr(name string) string {
	return strings.TrimSpace(n.attrs[name])
}

// readTree decodes data leniently: unknown HTML entities are accepted and
// unclosed elements are closed at their parent's end tag.
func readTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var root *node
	var stack []*node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if root != nil && len(stack) == 0 {
				// trailing garbage after the root element
				break
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: strings.ToLower(t.Name.Local), attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[strings.ToLower(a.Name.Local)] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return root, nil
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].chars.Write(t)
			}
		}
	}

	return root, nil
}
