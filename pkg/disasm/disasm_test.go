package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/casdas/pkg/image"
)

func load(t *testing.T, bytes []byte, base uint16) *image.Image {
	t.Helper()
	img := image.New(0)
	for i, b := range bytes {
		require.NoError(t, img.Write(uint32(base)+uint32(i), b))
	}
	return img
}

func TestOpLenTable(t *testing.T) {
	img := load(t, []byte{
		0x00,                   // NOP
		0x3E, 0x01,             // LD A,1
		0x21, 0x34, 0x12,       // LD HL,1234H
		0xCB, 0x06,             // RLC (HL)
		0xDD, 0x21, 0x00, 0x10, // LD IX,1000H
		0xDD, 0xCB, 0x05, 0x46, // BIT 0,(IX+5)
		0xED, 0x44,             // NEG
		0xED, 0x43, 0x00, 0x10, // LD (1000H),BC
	}, 0)
	assert.Equal(t, 1, OpLen(img, 0))
	assert.Equal(t, 2, OpLen(img, 1))
	assert.Equal(t, 3, OpLen(img, 3))
	assert.Equal(t, 2, OpLen(img, 6))
	assert.Equal(t, 4, OpLen(img, 8))
	assert.Equal(t, 4, OpLen(img, 12))
	assert.Equal(t, 2, OpLen(img, 16))
	assert.Equal(t, 4, OpLen(img, 18))
}

func TestFormatBasicOpcodes(t *testing.T) {
	img := load(t, []byte{0x00, 0x76, 0xC9, 0x3E, 0x7F}, 0)
	text, n := Format(0, img, nil)
	assert.Equal(t, "NOP", text)
	assert.Equal(t, 1, n)

	text, n = Format(1, img, nil)
	assert.Equal(t, "HALT", text)
	assert.Equal(t, 1, n)

	text, n = Format(2, img, nil)
	assert.Equal(t, "RET", text)
	assert.Equal(t, 1, n)

	text, n = Format(3, img, nil)
	assert.Equal(t, "LD      A,$7F", text)
	assert.Equal(t, 2, n)
}

func TestFormatIndexedAndCB(t *testing.T) {
	img := load(t, []byte{0xDD, 0x36, 0x05, 0x7F}, 0)
	text, n := Format(0, img, nil)
	assert.Equal(t, "LD      (IX+$05),$7F", text)
	assert.Equal(t, 4, n)

	img = load(t, []byte{0xCB, 0x06}, 0) // RLC (HL)
	text, n = Format(0, img, nil)
	assert.Equal(t, "RLC     (HL)", text)
	assert.Equal(t, 2, n)

	img = load(t, []byte{0xDD, 0xCB, 0x05, 0x46}, 0) // BIT 0,(IX+5)
	text, n = Format(0, img, nil)
	assert.Equal(t, "BIT     0,(IX+$05)", text)
	assert.Equal(t, 4, n)
}

func TestFormatEDGroup(t *testing.T) {
	img := load(t, []byte{0xED, 0x44, 0xED, 0xB0}, 0) // NEG; LDIR
	text, _ := Format(0, img, nil)
	assert.Equal(t, "NEG", text)
	text, _ = Format(2, img, nil)
	assert.Equal(t, "LDIR", text)
}

// TestTraceStopsOnIndirectJump grounds spec.md §8 scenario 6: a reachability
// scan must stop at JP (HL), since the target is unknowable.
func TestTraceStopsOnIndirectJump(t *testing.T) {
	img := load(t, []byte{
		0xC3, 0x04, 0x00, // 0000: JP 0004H
		0x00,             // 0003: unreachable NOP (never visited directly)
		0xE9,             // 0004: JP (HL)
	}, 0)
	s := NewScan(img)
	s.Trace(0)
	assert.Equal(t, Opcode, s.Mode(0).State())
	assert.Equal(t, Opcode, s.Mode(4).State())
	assert.True(t, s.Mode(4).HasLabel())
	assert.Equal(t, Empty, s.Mode(3).State())
}

func TestTraceFollowsConditionalAndFallsThrough(t *testing.T) {
	img := load(t, []byte{
		0x28, 0x01, // 0000: JR Z,0003H
		0x00,       // 0002: NOP (fallthrough)
		0xC9,       // 0003: RET
	}, 0)
	s := NewScan(img)
	s.Trace(0)
	assert.Equal(t, Opcode, s.Mode(0).State())
	assert.Equal(t, Opcode, s.Mode(2).State())
	assert.Equal(t, Opcode, s.Mode(3).State())
	assert.True(t, s.Mode(3).HasLabel())
}

func TestListingCollapsesDataRuns(t *testing.T) {
	img := load(t, []byte{0xC9, 0x11, 0x22, 0x33, 0x44}, 0) // RET then 4 unreached bytes
	s := NewScan(img)
	s.Trace(0)
	l := &Lister{Img: img, Scan: s}
	lines := l.Listing(0, 4)
	require.Len(t, lines, 2)
	assert.Equal(t, "RET", lines[0].Text)
	assert.Equal(t, "DEFB    $11,$22,$33,$44", lines[1].Text)
}
