package hotkeys

import "golang.design/x/hotkey"

func nativeModifiers(m Modifier) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m&(ModCommand|ModSuper) != 0 {
		mods = append(mods, hotkey.ModWin)
	}
	if m&ModControl != 0 {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m&ModAlt != 0 {
		mods = append(mods, hotkey.ModAlt)
	}
	if m&ModShift != 0 {
		mods = append(mods, hotkey.ModShift)
	}
	return mods
}
