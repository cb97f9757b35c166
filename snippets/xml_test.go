package snippets

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeXML(t *testing.T) {
	out, err := EncodeXML([]string{"Empty", "Work"}, []Snippet{
		{Title: "sig", Content: "<b>山田</b> & co", Folder: "Work"},
		{Title: "misc", Content: "x", Folder: "Other"},
	})
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, xml.Header))
	assert.Contains(t, s, "&lt;b&gt;山田&lt;/b&gt; &amp; co")

	var doc xmlDocument
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Folders, 3)
	assert.Equal(t, "Empty", doc.Folders[0].Title)
	assert.Empty(t, doc.Folders[0].Snippets)
	assert.Equal(t, "Work", doc.Folders[1].Title)
	assert.Equal(t, "sig", doc.Folders[1].Snippets[0].Title)
	assert.Equal(t, "Other", doc.Folders[2].Title)
}
