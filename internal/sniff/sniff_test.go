package sniff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniff_UTF16LE_BOM(t *testing.T) {
	enc, bom := Sniff([]byte{0xFF, 0xFE, 'H', 0x00})
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, 2, bom)
}

func TestSniff_UTF16BE_BOM(t *testing.T) {
	enc, bom := Sniff([]byte{0xFE, 0xFF, 0x00, 'H'})
	assert.Equal(t, UTF16BE, enc)
	assert.Equal(t, 2, bom)
}

func TestSniff_UTF8_BOM(t *testing.T) {
	enc, bom := Sniff([]byte{0xEF, 0xBB, 0xBF, 'H', 'i'})
	assert.Equal(t, UTF8, enc)
	assert.Equal(t, 3, bom)
}

func TestSniff_ShortASCII_NeverMisclassifiedAsUnicode(t *testing.T) {
	// "Hello World!" as ANSI bytes: every other byte is not conveniently
	// zero in a way that could pass the Unicode heuristic, and the prefix
	// is under the 100-byte guard regardless.
	enc, bom := Sniff([]byte("Hello World!"))
	assert.Equal(t, ANSI, enc)
	assert.Equal(t, 0, bom)
}

func TestSniff_LongUTF16LENoBOM_DetectedViaHeuristic(t *testing.T) {
	s := "Hello world UTF16! This line is padded to exceed the one hundred byte guard so the heuristic kicks in."
	var buf bytes.Buffer
	for _, r := range s {
		buf.WriteByte(byte(r))
		buf.WriteByte(0x00)
	}
	enc, bom := Sniff(buf.Bytes())
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, 0, bom)
}

func TestSniff_ShortUTF16LENoBOM_EveryHighByteZero_StillDetected(t *testing.T) {
	// 36 bytes (18 UTF-16 code units), well under the 100-byte statistical
	// guard — but every single high byte is zero, which is the stronger,
	// length-independent "null bytes" signal, not the weak statistical
	// one, so this must still be classified as UTF-16LE.
	s := "Hello world UTF16!"
	var buf bytes.Buffer
	for _, r := range s {
		buf.WriteByte(byte(r))
		buf.WriteByte(0x00)
	}
	enc, bom := Sniff(buf.Bytes())
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, 0, bom)
}

func TestSniff_ShortMixedZeroRatio_BelowGuard_NotClassifiedAsUTF16LE(t *testing.T) {
	// A short prefix with only a majority (not all) of high bytes zero
	// relies on the weak statistical signal, which requires the 100-byte
	// guard; under that length it must not be classified as UTF-16LE.
	b := []byte{'H', 0x00, 'e', 0x00, 'l', 0x01, 'l', 0x00, 'o', 0x00}
	enc, _ := Sniff(b)
	assert.NotEqual(t, UTF16LE, enc)
}

func TestSniff_ValidUTF8Text(t *testing.T) {
	enc, bom := Sniff([]byte("h\xC3\xA9llo")) // "héllo"
	assert.Equal(t, UTF8, enc)
	assert.Equal(t, 0, bom)
}

func TestSniff_InvalidUTF8FallsBackToANSI(t *testing.T) {
	enc, _ := Sniff([]byte{0xC3, 0x28}) // invalid continuation byte
	assert.Equal(t, ANSI, enc)
}
