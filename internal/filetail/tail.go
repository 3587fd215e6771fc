package filetail

import (
	"errors"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"

	"logmonitor/internal/fileid"
	"logmonitor/internal/metrics"
	"logmonitor/internal/outputlane"
	"logmonitor/internal/sniff"
)

// readWindow is the fixed per-read chunk size, matching a conventional
// 4096-byte log-reader window.
const readWindow = 4096

// tailOnce implements the tail algorithm for a single FileEntry: open,
// sniff encoding if still unknown, read from NextReadOffset to EOF in
// readWindow chunks, reassemble lines, emit complete lines, and advance the
// offset by exactly the bytes read. The partial-line buffer is local to
// this call and never persisted across invocations, so a trailing partial
// line still sitting in the file at EOF is flushed as-is before returning.
func tailOnce(longPath, sourceID string, entry *fileid.Entry, lane *outputlane.Lane) {
	f, err := os.Open(longPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File-not-found/path-not-found: the file disappeared
			// between the event and the read. Silent per §4.4.
			return
		}
		lane.TraceError("ReadLogFile: failed to open %s: %v", longPath, err)
		metrics.RecordTailError(sourceID, "open")
		return
	}
	defer f.Close()

	var bom [3]byte
	bomRead := false
	if entry.NextReadOffset >= 3 && sniff.Encoding(entry.Encoding) == sniff.Unknown {
		if n, err := f.ReadAt(bom[:], 0); err == nil || (err == io.EOF && n > 0) {
			bomRead = n >= 2
		}
	}

	var pending []byte // cross-chunk partial line, local to this invocation
	buf := make([]byte, readWindow)

	for {
		n, readErr := f.ReadAt(buf, entry.NextReadOffset)
		if n > 0 {
			chunk := buf[:n]

			foundBOMSize := 0
			if sniff.Encoding(entry.Encoding) == sniff.Unknown {
				var enc sniff.Encoding
				if bomRead {
					enc, foundBOMSize = sniff.Sniff(bom[:])
				} else {
					enc, foundBOMSize = sniff.Sniff(chunk)
				}
				entry.Encoding = int(enc)
			}

			// foundBOMSize only applies to bytes physically present in
			// this read window; if the BOM fell before NextReadOffset
			// (already consumed by a prior read) there is nothing left
			// to skip here.
			skip := 0
			if int64(foundBOMSize) > entry.NextReadOffset {
				skip = foundBOMSize - int(entry.NextReadOffset)
				if skip > len(chunk) {
					skip = len(chunk)
				}
			}

			decoded := decode(chunk[skip:], sniff.Encoding(entry.Encoding))
			pending = emitLines(pending, decoded, lane, sourceID)

			entry.NextReadOffset += int64(n)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			lane.TraceError("ReadLogFile: read error on %s: %v", longPath, readErr)
			metrics.RecordTailError(sourceID, "read")
			break
		}
		if n == 0 {
			break
		}
	}

	if len(pending) > 0 {
		lane.WriteLine(string(pending))
		metrics.RecordProcessed("file", sourceID)
	}
}

// emitLines scans decoded for the last CR or LF, treating a CRLF or LFCR
// pair as a single separator, writes the completed line(s) (pending
// fragment concatenated with the leading part of decoded up to, but not
// including, the last separator) as one lane write, and returns the new
// trailing partial-line fragment. Separators before the last one stay
// inside that write unchanged.
func emitLines(pending []byte, decoded []byte, lane *outputlane.Lane, sourceID string) []byte {
	last := lastNewlineIndex(decoded)
	if last < 0 {
		return append(pending, decoded...)
	}

	sepEnd := last + 1
	// A CRLF or LFCR pair counts as one separator: if the byte before
	// `last` is also a line-ending byte and differs from decoded[last],
	// fold it into the same separator.
	lineEnd := last
	if last > 0 && isEOL(decoded[last-1]) && decoded[last-1] != decoded[last] {
		lineEnd = last - 1
	}

	if len(pending) > 0 {
		line := append(append([]byte{}, pending...), decoded[:lineEnd]...)
		lane.WriteLine(string(line))
	} else {
		lane.WriteLine(string(decoded[:lineEnd]))
	}
	metrics.RecordProcessed("file", sourceID)

	return append([]byte{}, decoded[sepEnd:]...)
}

func isEOL(b byte) bool { return b == '\n' || b == '\r' }

func lastNewlineIndex(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if isEOL(b[i]) {
			return i
		}
	}
	return -1
}

// decode converts raw bytes read from the file into the text the tailer
// emits, per the detected encoding. ANSI and UTF-8 are passed through
// as-is (both are already valid byte sequences for our purposes); UTF-16
// variants are converted to UTF-8.
func decode(b []byte, enc sniff.Encoding) []byte {
	switch enc {
	case sniff.UTF16LE:
		return utf16ToUTF8(b, false)
	case sniff.UTF16BE:
		return utf16ToUTF8(b, true)
	default:
		return b
	}
}

func utf16ToUTF8(b []byte, bigEndian bool) []byte {
	endian := unicode.LittleEndian
	if bigEndian {
		endian = unicode.BigEndian
	}
	decoder := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()

	out, err := decoder.Bytes(b)
	if err != nil {
		// A malformed trailing surrogate at the edge of a read window;
		// best-effort pass the source bytes through rather than drop them.
		return b
	}
	return out
}
