package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyImage(t *testing.T) {
	img := New(0)
	assert.True(t, img.Empty())
}

func TestWriteUpdatesMarks(t *testing.T) {
	img := New(0)
	require.NoError(t, img.Write(0x0100, 0xC3))
	require.NoError(t, img.Write(0x0104, 0xC9))
	assert.False(t, img.Empty())
	assert.Equal(t, uint16(0x0100), img.LoPC())
	assert.Equal(t, uint16(0x0104), img.HiPC())
}

func TestWriteOverflowFails(t *testing.T) {
	img := New(0)
	require.NoError(t, img.Write(0xFFFF, 1))
	err := img.Write(0x10000, 1)
	require.Error(t, err)
}

func TestReadReturnsFillByte(t *testing.T) {
	img := New(0xAA)
	assert.Equal(t, byte(0xAA), img.Read(0x1234))
}

func TestSlice(t *testing.T) {
	img := New(0)
	require.NoError(t, img.Write(0, 1))
	require.NoError(t, img.Write(1, 2))
	require.NoError(t, img.Write(2, 3))
	assert.Equal(t, []byte{1, 2, 3}, img.Slice(0, 2))
}
