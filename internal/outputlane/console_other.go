//go:build !windows

package outputlane

import "io"

// detectConsoleHandle never reports a console on non-Windows builds; the
// lane always falls back to the platform-default byte path.
func detectConsoleHandle(w io.Writer) (consoleHandle, bool) {
	return 0, false
}

type consoleHandle = int

func writeConsoleUTF16(h consoleHandle, s string) error {
	return nil
}
