package hotkeys

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in   string
		want Accelerator
		str  string
	}{
		{"Command+Control+C", Accelerator{ModCommand | ModControl, "C"}, "Command+Control+C"},
		{"Ctrl+Alt+V", Accelerator{ModControl | ModAlt, "V"}, "Control+Alt+V"},
		{"cmd+shift+x", Accelerator{ModCommand | ModShift, "X"}, "Command+Shift+X"},
		{"Option+F5", Accelerator{ModAlt, "F5"}, "Alt+F5"},
		{"Win+Space", Accelerator{ModSuper, "SPACE"}, "Super+Space"},
		{"Ctrl + Return", Accelerator{ModControl, "ENTER"}, "Control+Enter"},
		{"Alt+1", Accelerator{ModAlt, "1"}, "Alt+1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccelerator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseAccelerator_CommandOrControl(t *testing.T) {
	got, err := ParseAccelerator("CommandOrControl+Shift+V")
	require.NoError(t, err)

	want := ModControl
	if runtime.GOOS == "darwin" {
		want = ModCommand
	}
	assert.Equal(t, want|ModShift, got.Modifiers)
}

func TestParseAccelerator_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"C",
		"Ctrl+",
		"Hyper+C",
		"Ctrl+F13",
		"Ctrl+F01",
		"Ctrl+PageUp",
		"Ctrl++C",
	} {
		_, err := ParseAccelerator(in)
		assert.Error(t, err, in)
	}
}
