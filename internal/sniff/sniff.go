// Package sniff implements the file-tailer's encoding detector: given a
// prefix of a file's bytes, decide whether it is UTF-8, UTF-16LE, UTF-16BE,
// or the locale ANSI codepage, with or without a byte-order mark.
package sniff

// Encoding is one of the five encodings a FileEntry can be tagged with.
type Encoding int

const (
	Unknown Encoding = iota
	ANSI
	UTF16LE
	UTF16BE
	UTF8
)

func (e Encoding) String() string {
	switch e {
	case ANSI:
		return "ANSI"
	case UTF16LE:
		return "UTF16LE"
	case UTF16BE:
		return "UTF16BE"
	case UTF8:
		return "UTF8"
	default:
		return "Unknown"
	}
}

// unicodeHeuristicMinBytes guards the statistical "looks like UTF-16" test
// — short ASCII payloads are otherwise indistinguishable from UTF-16LE text
// whose high bytes happen to be zero.
const unicodeHeuristicMinBytes = 100

// Sniff inspects prefix (the first bytes read from a file, or the first
// bytes of a read window when the file's encoding is already known not to
// carry a BOM at this offset) and returns the detected encoding and the
// number of leading bytes that make up the byte-order mark, if any.
func Sniff(prefix []byte) (Encoding, int) {
	if len(prefix) >= 2 && prefix[0] == 0xFF && prefix[1] == 0xFE {
		return UTF16LE, 2
	}
	if len(prefix) >= 2 && prefix[0] == 0xFE && prefix[1] == 0xFF {
		return UTF16BE, 2
	}
	if len(prefix) >= 3 && prefix[0] == 0xEF && prefix[1] == 0xBB && prefix[2] == 0xBF {
		return UTF8, 3
	}

	if looksLikeUTF16(prefix, unicodeHeuristicMinBytes) {
		return UTF16LE, 0
	}
	if isValidUTF8(prefix) {
		return UTF8, 0
	}
	return ANSI, 0
}

// looksLikeUTF16 approximates the Win32 IsTextUnicode multi-test result:
// a handful of independent signals are evaluated and OR'd together, and
// only the weakest of them (the pure statistical byte-distribution test)
// is subject to the short-string guard. In predominantly-ASCII UTF-16LE
// text every code unit's high byte is zero, so a prefix where *every*
// high byte is zero is the strong, length-independent "null bytes" signal;
// a prefix where only a majority are zero is the weaker statistical
// signal, trusted only once minBytes of evidence have accumulated.
func looksLikeUTF16(b []byte, minBytes int) bool {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	pairs := len(b) / 2
	if pairs == 0 {
		return false
	}

	zeroHighBytes := 0
	for i := 0; i < pairs; i++ {
		if b[2*i+1] == 0x00 {
			zeroHighBytes++
		}
	}

	if zeroHighBytes == pairs {
		// Every code unit's high byte is zero: a definite signal, not
		// merely statistical, so it is trusted regardless of length.
		return true
	}

	if len(b) < minBytes {
		return false
	}
	return float64(zeroHighBytes)/float64(pairs) > 0.80
}

// isValidUTF8 walks b verifying every multi-byte sequence has the correct
// leading and continuation bits; a single malformed sequence disqualifies
// the whole prefix.
func isValidUTF8(b []byte) bool {
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c&0x80 == 0x00:
			i++
		case c&0xE0 == 0xC0:
			if !hasContinuation(b, i, 1) {
				return false
			}
			i += 2
		case c&0xF0 == 0xE0:
			if !hasContinuation(b, i, 2) {
				return false
			}
			i += 3
		case c&0xF8 == 0xF0:
			if !hasContinuation(b, i, 3) {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

func hasContinuation(b []byte, start, n int) bool {
	if start+n >= len(b) {
		// Truncated at the end of the prefix window: treat the
		// incomplete trailing sequence as not disqualifying, since a
		// longer read may complete it later.
		for i := start + 1; i < len(b); i++ {
			if b[i]&0xC0 != 0x80 {
				return false
			}
		}
		return true
	}
	for i := 1; i <= n; i++ {
		if b[start+i]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
