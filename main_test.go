package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func testConfigFlag(t *testing.T) string {
	return "--config=" + filepath.Join(t.TempDir(), "config.toml")
}

func TestVersionCmd(t *testing.T) {
	assert.Equal(t, "snipee dev\n", execute(t, "", "version"))
}

func TestExpandCmd_PlainTextPassesThrough(t *testing.T) {
	out := execute(t, "", "expand", testConfigFlag(t), "--log-level=error", "hello")
	assert.Equal(t, "hello\n", out)
}

func TestExpandCmd_ReadsStdin(t *testing.T) {
	out := execute(t, "from stdin\n", "expand", testConfigFlag(t), "--log-level=error")
	assert.Equal(t, "from stdin\n", out)
}

func TestExportCmd_WritesXML(t *testing.T) {
	out := execute(t, "", "export", testConfigFlag(t), "--log-level=error")
	assert.Contains(t, out, "<folders>")
}

func TestSyncCmd_FailsWithoutSource(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sync", testConfigFlag(t), "--log-level=error"})

	assert.Error(t, cmd.Execute())
}
