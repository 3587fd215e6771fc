//go:build windows

package etwtrace

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/windows"
)

// resolveProviders resolves every Provider given only by friendly name
// against the OS's enumerable provider list (case-insensitive) and drops,
// with a warning, any provider that ends up with neither a valid GUID nor
// a resolvable name. Per Invariant D the caller must refuse the session if
// every provider was dropped.
func resolveProviders(providers []Provider, warn func(format string, args ...interface{})) []Provider {
	var resolved []Provider
	for _, p := range providers {
		if p.hasGUID() {
			resolved = append(resolved, p)
			continue
		}
		if p.Name == "" {
			warn("etwtrace: provider has neither GUID nor name, dropping")
			continue
		}

		guid, err := lookupProviderGUID(p.Name)
		if err != nil {
			warn("etwtrace: could not resolve provider name %q: %v", p.Name, err)
			continue
		}
		p.GUID = fromWindowsGUID(guid)
		resolved = append(resolved, p)
	}
	return resolved
}

func guidString(g windows.GUID) string {
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3], g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// toWindowsGUID and fromWindowsGUID convert between the portable GUID and
// windows.GUID; both share the same 16-byte layout, so the conversion is a
// field-by-field reinterpretation, not a value transform.
func toWindowsGUID(g GUID) windows.GUID {
	return windows.GUID{
		Data1: binary.LittleEndian.Uint32(g[0:4]),
		Data2: binary.LittleEndian.Uint16(g[4:6]),
		Data3: binary.LittleEndian.Uint16(g[6:8]),
		Data4: [8]byte{g[8], g[9], g[10], g[11], g[12], g[13], g[14], g[15]},
	}
}

func fromWindowsGUID(g windows.GUID) GUID {
	var out GUID
	binary.LittleEndian.PutUint32(out[0:4], g.Data1)
	binary.LittleEndian.PutUint16(out[4:6], g.Data2)
	binary.LittleEndian.PutUint16(out[6:8], g.Data3)
	copy(out[8:16], g.Data4[:])
	return out
}
