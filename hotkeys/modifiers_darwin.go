package hotkeys

import "golang.design/x/hotkey"

func nativeModifiers(m Modifier) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m&(ModCommand|ModSuper) != 0 {
		mods = append(mods, hotkey.ModCmd)
	}
	if m&ModControl != 0 {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m&ModAlt != 0 {
		mods = append(mods, hotkey.ModOption)
	}
	if m&ModShift != 0 {
		mods = append(mods, hotkey.ModShift)
	}
	return mods
}
