//go:build !darwin && !windows && !(linux && hotkeys_x11)

package hotkeys

import "markestedt/snipee/platform"

type unsupportedRegistrar struct{}

// NewRegistrar returns a registrar that always fails with ErrUnsupported.
// Linux builds get the X11 registrar only with the hotkeys_x11 tag, since
// the native package aborts the process at init when no display is open.
func NewRegistrar() Registrar {
	return unsupportedRegistrar{}
}

func (unsupportedRegistrar) Register(Accelerator, func()) (Registration, error) {
	return nil, platform.ErrUnsupported
}
