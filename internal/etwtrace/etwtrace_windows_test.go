//go:build windows

package etwtrace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestGUIDString_Format(t *testing.T) {
	g := windows.GUID{Data1: 0x12345678, Data2: 0xABCD, Data3: 0xEF01, Data4: [8]byte{0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}}
	got := guidString(g)
	assert.Equal(t, "{12345678-ABCD-EF01-0203-040506070809}", got)
}

func TestToWindowsGUID_RoundTrips(t *testing.T) {
	want := windows.GUID{Data1: 0x12345678, Data2: 0xABCD, Data3: 0xEF01, Data4: [8]byte{0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}}
	got := toWindowsGUID(fromWindowsGUID(want))
	assert.Equal(t, want, got)
}

func TestResolveProviders_KeepsProvidersWithGUID(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...interface{}) { warnings = append(warnings, format) }

	providers := []Provider{
		{Name: "already-resolved", GUID: fromWindowsGUID(windows.GUID{Data1: 1})},
	}

	resolved := resolveProviders(providers, warn)
	require.Len(t, resolved, 1)
	assert.Empty(t, warnings)
}

func TestResolveProviders_DropsNamelessGUIDless(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...interface{}) { warnings = append(warnings, format) }

	resolved := resolveProviders([]Provider{{}}, warn)
	assert.Empty(t, resolved)
	assert.Len(t, warnings, 1)
}

func TestFileTimeToTime_ZeroIsZeroTime(t *testing.T) {
	assert.True(t, fileTimeToTime(0).IsZero())
}

func TestFileTimeToTime_KnownValue(t *testing.T) {
	// 2026-01-02T03:04:05Z as Windows FILETIME (100ns ticks since 1601-01-01).
	target := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ft := (target.Unix() * 10000000) + filetimeEpochOffset
	got := fileTimeToTime(ft)
	assert.True(t, target.Equal(got), "expected %v, got %v", target, got)
}
