//go:build windows

package outputlane

import (
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procWriteConsW = kernel32.NewProc("WriteConsoleW")
)

// consoleHandle is the Windows console handle type shared with the
// non-Windows stub build.
type consoleHandle = windows.Handle

// detectConsoleHandle returns w's underlying console handle when w is an
// *os.File attached to a real console (not a redirected file or pipe).
func detectConsoleHandle(w io.Writer) (consoleHandle, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return 0, false
	}
	return h, true
}

// writeConsoleUTF16 writes s to the console handle h via WriteConsoleW,
// the Win32 entry point that renders UTF-16 directly without going through
// the console codepage, following the same lazy-DLL syscall idiom used for
// the event-log and trace followers' own Win32 surface.
func writeConsoleUTF16(h consoleHandle, s string) error {
	u16, err := windows.UTF16FromString(s)
	if err != nil {
		return err
	}
	if len(u16) == 0 {
		return nil
	}
	// UTF16FromString appends a NUL terminator; WriteConsoleW wants the
	// character count excluding it.
	chars := u16[:len(u16)-1]

	var written uint32
	r1, _, err := procWriteConsW.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(&chars[0])),
		uintptr(len(chars)),
		uintptr(unsafe.Pointer(&written)),
		0,
	)
	if r1 == 0 {
		return err
	}
	return nil
}
