package filetail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logmonitor/internal/outputlane"
)

// syncBuffer is a concurrency-safe io.Writer wrapper; the Tailer's worker
// goroutine writes to the lane asynchronously, so tests poll its contents
// from the test goroutine while the worker may still be running.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

func newTestTailer(t *testing.T, dir string, cfg Config) (*Tailer, *syncBuffer) {
	t.Helper()
	cfg.Directory = dir
	buf := &syncBuffer{}
	lane := outputlane.New(buf)
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	tailer, err := New(cfg, lane, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tailer.Start(ctx))

	t.Cleanup(func() {
		tailer.Stop()
		cancel()
	})
	return tailer, buf
}

func waitForContains(t *testing.T, buf *syncBuffer, substr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), substr)
	}, 2*time.Second, 10*time.Millisecond, "expected output to contain %q, got %q", substr, buf.String())
}

func TestTailer_BasicTail_PlainASCII(t *testing.T) {
	dir := t.TempDir()
	_, buf := newTestTailer(t, dir, Config{Filter: "*.log"})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("Hello World!\n"), 0644))

	waitForContains(t, buf, "Hello World!")
}

func TestTailer_UTF16LENoBOM_Detected(t *testing.T) {
	dir := t.TempDir()
	_, buf := newTestTailer(t, dir, Config{Filter: "*.log"})

	line := "utf16le without a byte order mark\r\n"
	var raw []byte
	for _, r := range line {
		raw = append(raw, byte(r), 0x00)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u16le.log"), raw, 0644))

	waitForContains(t, buf, "utf16le without a byte order mark")
}

func TestTailer_UTF16BEWithBOM_Detected(t *testing.T) {
	dir := t.TempDir()
	_, buf := newTestTailer(t, dir, Config{Filter: "*.log"})

	line := "hello from big endian\r\n"
	raw := []byte{0xFE, 0xFF}
	for _, r := range line {
		raw = append(raw, 0x00, byte(r))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u16be.log"), raw, 0644))

	waitForContains(t, buf, "hello from big endian")
}

func TestTailer_FilterExcludesNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	_, buf := newTestTailer(t, dir, Config{Filter: "*.log"})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("should not appear\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.log"), []byte("should appear\n"), 0644))

	waitForContains(t, buf, "should appear")
	assert.NotContains(t, buf.String(), "should not appear")
}

func TestTailer_IncludeSubdirs_TailsNestedFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))

	_, buf := newTestTailer(t, dir, Config{Filter: "*.log", IncludeSubdirs: true})

	require.NoError(t, os.WriteFile(filepath.Join(sub, "n.log"), []byte("nested line\n"), 0644))

	waitForContains(t, buf, "nested line")
}

func TestTailer_Rename_PreservesOffsetByIdentity(t *testing.T) {
	dir := t.TempDir()
	_, buf := newTestTailer(t, dir, Config{Filter: "*.log"})

	original := filepath.Join(dir, "current.log")
	require.NoError(t, os.WriteFile(original, []byte("line one\n"), 0644))
	waitForContains(t, buf, "line one")

	rotated := filepath.Join(dir, "rotated.log")
	require.NoError(t, os.Rename(original, rotated))
	require.NoError(t, os.WriteFile(original, []byte("line two\n"), 0644))

	waitForContains(t, buf, "line two")
	assert.Equal(t, 1, strings.Count(buf.String(), "line one"), "renamed file must not be re-read from offset 0")
}

func TestNew_RejectsRootVolumeRecursion(t *testing.T) {
	lane := outputlane.New(&syncBuffer{})
	logger := logrus.New()

	_, err := New(Config{Directory: string(filepath.Separator), IncludeSubdirs: true}, lane, logger)
	require.Error(t, err)
}

func TestConfig_FilterDefaultsToStar(t *testing.T) {
	var cfg Config
	assert.Equal(t, "*", cfg.filter())
}
