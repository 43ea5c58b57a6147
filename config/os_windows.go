//go:build windows

package config

import (
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/term"
)

const enableVirtualTerminalProcessing uint32 = 0x4

// EnableColorOutput checks if colorized output is possible and turns on
// VT100 sequence processing for the console (Windows 10 and later).
func EnableColorOutput(stream *os.File) bool {
	if !term.IsTerminal(int(stream.Fd())) || windowsMajorVersion() < 10 {
		return false
	}

	var mode uint32
	h := windows.Handle(stream.Fd())
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|enableVirtualTerminalProcessing) == nil
}

func windowsMajorVersion() uint64 {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return 0
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("CurrentMajorVersionNumber")
	if err != nil {
		return 0
	}
	return v
}
