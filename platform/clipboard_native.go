//go:build darwin || linux

package platform

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	clipboardOnce sync.Once
	clipboardErr  error
)

// nativeClipboard implements Clipboard with golang.design/x/clipboard.
// clipboard.Init is deferred to first use so CLI sub-commands that never
// touch the clipboard don't fail on headless systems.
type nativeClipboard struct{}

func (nativeClipboard) init() error {
	clipboardOnce.Do(func() {
		clipboardErr = clipboard.Init()
	})
	if clipboardErr != nil {
		return fmt.Errorf("clipboard unavailable: %w", clipboardErr)
	}
	return nil
}

// ReadClipboardText retrieves text from the clipboard
func (c nativeClipboard) ReadClipboardText() (string, error) {
	if err := c.init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// WriteClipboardText sets text to the clipboard
func (c nativeClipboard) WriteClipboardText(text string) error {
	if err := c.init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
