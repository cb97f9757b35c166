//go:build hotkeys_x11

package hotkeys

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4 on standard keymaps
func nativeModifiers(m Modifier) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m&(ModCommand|ModSuper) != 0 {
		mods = append(mods, hotkey.Mod4)
	}
	if m&ModControl != 0 {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m&ModAlt != 0 {
		mods = append(mods, hotkey.Mod1)
	}
	if m&ModShift != 0 {
		mods = append(mods, hotkey.ModShift)
	}
	return mods
}
