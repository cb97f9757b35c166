package snipsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/snipee/snippets"
)

const clipyDoc = `<?xml version="1.0" encoding="UTF-8"?>
<folders>
  <folder>
    <title>挨拶</title>
    <snippets>
      <snippet>
        <title>お礼</title>
        <content>いつもお世話になっております。{名前}です。</content>
      </snippet>
      <snippet id="explicit-1">
        <title>Signature</title>
        <content><![CDATA[<b>Yamada</b> & co]]></content>
        <description>mail footer</description>
      </snippet>
    </snippets>
  </folder>
  <folder>
    <snippets>
      <snippet><title>loose</title><content>x &nbsp; y</content></snippet>
    </snippets>
  </folder>
</folders>`

func TestParse_ClipyDocument(t *testing.T) {
	got, err := Parse([]byte(clipyDoc))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "挨拶", got[0].Folder)
	assert.Equal(t, "お礼", got[0].Title)
	assert.Equal(t, "いつもお世話になっております。{名前}です。", got[0].Content)
	assert.NotEmpty(t, got[0].ID)

	assert.Equal(t, "explicit-1", got[1].ID)
	assert.Equal(t, "<b>Yamada</b> & co", got[1].Content)
	assert.Equal(t, "mail footer", got[1].Description)

	assert.Equal(t, snippets.UncategorizedFolder, got[2].Folder)
	assert.Equal(t, "x \u00a0 y", got[2].Content)
}

func TestParse_UppercaseTags(t *testing.T) {
	doc := `<FOLDERS><FOLDER><TITLE>A</TITLE><SNIPPETS><SNIPPET><ID>s1</ID><TITLE>t</TITLE><CONTENT>c</CONTENT></SNIPPET></SNIPPETS></FOLDER></FOLDERS>`

	got, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, snippets.Snippet{ID: "s1", Title: "t", Content: "c", Folder: "A"}, got[0])
}

func TestParse_StableIDs(t *testing.T) {
	first, err := Parse([]byte(clipyDoc))
	require.NoError(t, err)
	second, err := Parse([]byte(clipyDoc))
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[2].ID, second[2].ID)
	assert.NotEqual(t, first[0].ID, first[2].ID)
}

func TestParse_IDIgnoresContentBeyondPrefix(t *testing.T) {
	base := strings.Repeat("あ", idPrefixRunes)
	doc := func(content string) string {
		return `<folders><folder><title>F</title><snippets><snippet><title>T</title><content>` +
			content + `</content></snippet></snippets></folder></folders>`
	}

	a, err := Parse([]byte(doc(base + "tail one")))
	require.NoError(t, err)
	b, err := Parse([]byte(doc(base + "tail two")))
	require.NoError(t, err)

	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestParse_DuplicateSnippetsGetDistinctIDs(t *testing.T) {
	doc := `<folders><folder><title>F</title><snippets>
		<snippet><title>T</title><content>same</content></snippet>
		<snippet><title>T</title><content>same</content></snippet>
	</snippets></folder></folders>`

	got, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestParse_HTMLIsSharingPermissionError(t *testing.T) {
	for _, doc := range []string{
		"<!DOCTYPE html><html><head><title>Sign in</title></head></html>",
		"\n  <html lang=\"ja\"><body>Google Drive</body></html>",
		"<!doctype HTML>",
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrSharingPermission, doc)
	}
}

func TestParse_MissingRootIsFormatError(t *testing.T) {
	for _, doc := range []string{
		`<?xml version="1.0"?><snippets><snippet/></snippets>`,
		`plain text`,
		``,
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrFormat, doc)
	}
}
