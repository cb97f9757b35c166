//go:build windows

package platform

import (
	"context"
	"fmt"
	"time"
	"unsafe"
)

var (
	sendInput      = user32.NewProc("SendInput")
	mapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
	vkControl      = 0x11
	vkV            = 0x56

	inputSettle = 20 * time.Millisecond
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT; padding covers the larger MOUSEINPUT union member
type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte
}

func keyInput(vk uint16, scan uintptr, flags uint32) input {
	return input{
		inputType: inputKeyboard,
		ki: keyboardInput{
			wVk:     vk,
			wScan:   uint16(scan),
			dwFlags: flags,
		},
	}
}

// SendPasteKeystroke injects Ctrl down, V down, V up, Ctrl up in a single
// SendInput call. Scan codes are filled in so elevated targets accept it.
func (a *windowsAutomation) SendPasteKeystroke(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctrlScan, _, _ := mapVirtualKeyW.Call(vkControl, mapvkVkToVsc)
	vScan, _, _ := mapVirtualKeyW.Call(vkV, mapvkVkToVsc)

	inputs := []input{
		keyInput(vkControl, ctrlScan, 0),
		keyInput(vkV, vScan, 0),
		keyInput(vkV, vScan, keyeventfKeyup),
		keyInput(vkControl, ctrlScan, keyeventfKeyup),
	}

	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %w", err)
	}

	time.Sleep(inputSettle)
	return nil
}
