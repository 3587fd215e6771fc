// Package etwtrace implements the kernel-trace follower: opens a real-time
// ETW session, enables a set of providers, and decodes and renders each
// event's metadata-driven payload.
package etwtrace

// GUID is the portable 16-byte provider identifier, laid out byte-for-byte
// as a Windows GUID (Data1/Data2/Data3 little-endian, Data4 as-is) so the
// windows-only build converts it to/from windows.GUID with a plain byte
// copy. Kept independent of golang.org/x/sys/windows so Provider, and the
// config package that builds one, compile on every GOOS.
type GUID [16]byte

// Provider is one configured trace provider: friendly name (optional),
// GUID, keyword bitmask and level.
type Provider struct {
	Name    string
	GUID    GUID
	Keyword uint64
	Level   byte // 1 (Critical) .. 5 (Verbose), same ordering as eventlog.Level
}

func (p Provider) hasGUID() bool {
	return p.GUID != GUID{}
}
