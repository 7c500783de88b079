package numfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHex8(t *testing.T) {
	assert.Equal(t, "00h", Hex8(0x00))
	assert.Equal(t, "7Fh", Hex8(0x7F))
	assert.Equal(t, "0FFh", Hex8(0xFF))
	assert.Equal(t, "0AAh", Hex8(0xAA))
}

func TestHex16(t *testing.T) {
	assert.Equal(t, "0000h", Hex16(0x0000))
	assert.Equal(t, "0100h", Hex16(0x0100))
	assert.Equal(t, "0FFFFh", Hex16(0xFFFF))
}

func TestPlainHex(t *testing.T) {
	assert.Equal(t, "0100", PlainHex16(0x0100))
	assert.Equal(t, "FFFF", PlainHex16(0xFFFF))
	assert.Equal(t, "0A", PlainHex8(0x0A))
}

func TestIsAlNum(t *testing.T) {
	assert.True(t, IsAlNum('_'))
	assert.True(t, IsAlNum('9'))
	assert.True(t, IsAlNum('z'))
	assert.False(t, IsAlNum('$'))
	assert.False(t, IsAlNum(' '))
}

func TestDigitValue(t *testing.T) {
	assert.Equal(t, 9, DigitValue('9', 10))
	assert.Equal(t, -1, DigitValue('A', 10))
	assert.Equal(t, 10, DigitValue('A', 16))
	assert.Equal(t, -1, DigitValue('G', 16))
	assert.Equal(t, 1, DigitValue('1', 2))
	assert.Equal(t, -1, DigitValue('2', 2))
}

func TestUpperCopyPreservesOriginal(t *testing.T) {
	orig := []byte("Label\"Text\"")
	up := UpperCopy(orig)
	assert.Equal(t, "LABEL\"TEXT\"", string(up))
	assert.Equal(t, "Label\"Text\"", string(orig))
}
