package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/casdas/pkg/image"
)

func TestLoadRawBinaryAtOffset(t *testing.T) {
	img := image.New(0)
	require.NoError(t, Load(img, "prog.bin", []byte{0x01, 0x02, 0x03}, 0x100))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, img.Slice(0x100, 0x102))
	assert.Equal(t, uint16(0x100), img.LoPC())
	assert.Equal(t, uint16(0x102), img.HiPC())
}

func TestZ80RoundTrip(t *testing.T) {
	img := image.New(0)
	for i, b := range []byte{0xAA, 0xBB, 0xCC} {
		require.NoError(t, img.Write(uint32(0x200+i), b))
	}
	raw, err := Save(img, "out.z80", 0x200, 0x202)
	require.NoError(t, err)

	img2 := image.New(0)
	require.NoError(t, Load(img2, "out.z80", raw, 0))
	assert.Equal(t, uint16(0x200), img2.LoPC())
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, img2.Slice(0x200, 0x202))
}

func TestHexRoundTrip(t *testing.T) {
	img := image.New(0)
	for i, b := range []byte{0x3E, 0x01, 0xC9} {
		require.NoError(t, img.Write(uint32(i), b))
	}
	raw, err := Save(img, "out.hex", 0, 2)
	require.NoError(t, err)

	img2 := image.New(0)
	require.NoError(t, Load(img2, "out.hex", raw, 0))
	assert.Equal(t, []byte{0x3E, 0x01, 0xC9}, img2.Slice(0, 2))
}

func TestComDeclinedBelowBase(t *testing.T) {
	img := image.New(0)
	require.NoError(t, img.Write(0x50, 0x00))
	_, err := Save(img, "out.com", 0x50, 0x60)
	assert.Error(t, err)
}

func TestComForcesBase(t *testing.T) {
	img := image.New(0)
	for i, b := range []byte{0x11, 0x22} {
		require.NoError(t, img.Write(uint32(0x100+i), b))
	}
	raw, err := Save(img, "out.com", 0x100, 0x101)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, raw)
}
