//go:build darwin || windows || (linux && hotkeys_x11)

package hotkeys

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var nativeKeys = map[string]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"SPACE":  hotkey.KeySpace,
	"ENTER":  hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"TAB":    hotkey.KeyTab,
	"DELETE": hotkey.KeyDelete,
	"UP":     hotkey.KeyUp,
	"DOWN":   hotkey.KeyDown,
	"LEFT":   hotkey.KeyLeft,
	"RIGHT":  hotkey.KeyRight,
}

type nativeRegistrar struct{}

// NewRegistrar returns the OS registrar backed by golang.design/x/hotkey
func NewRegistrar() Registrar {
	return nativeRegistrar{}
}

func (nativeRegistrar) Register(acc Accelerator, fn func()) (Registration, error) {
	key, ok := nativeKeys[acc.Key]
	if !ok {
		return nil, fmt.Errorf("key %q has no native mapping", acc.Key)
	}

	hk := hotkey.New(nativeModifiers(acc.Modifiers), key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", acc, err)
	}

	reg := &nativeRegistration{hk: hk, done: make(chan struct{})}
	go reg.listen(fn)
	return reg, nil
}

type nativeRegistration struct {
	hk   *hotkey.Hotkey
	done chan struct{}
	once sync.Once
}

func (r *nativeRegistration) listen(fn func()) {
	keydown := r.hk.Keydown()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			fn()
		}
	}
}

func (r *nativeRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
	})
	return err
}
