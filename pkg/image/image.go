// Package image implements the 64 KiB memory image shared by the
// assembler and disassembler: component G of the toolchain (spec.md §4.G).
package image

import "github.com/oisee/casdas/pkg/asmerr"

// Size is the addressable range of a Z80: exactly 64 KiB.
const Size = 0x10000

// Image is a flat 64 KiB byte array plus the high/low-water marks that
// track the region actually written (or, for the disassembler, loaded).
// The one-byte guard trailer from spec.md's data model is represented
// implicitly: Write rejects any address >= Size rather than writing past
// the backing array, so no trailing byte is ever needed in Go.
type Image struct {
	mem      [Size]byte
	loPC     int // Size while empty
	hiPC     int // -1 while empty
	fillByte byte
}

// New returns an empty image pre-filled with fillByte (the background fill
// that DS-skipped regions and "data not yet written" read back as).
func New(fillByte byte) *Image {
	img := &Image{loPC: Size, hiPC: -1, fillByte: fillByte}
	for i := range img.mem {
		img.mem[i] = fillByte
	}
	return img
}

// FillByte returns the background fill byte this image was created with.
func (img *Image) FillByte() byte { return img.fillByte }

// SetFillByte changes the background fill byte. While the image is still
// empty every address is refilled with b, so never-written addresses read
// back as b; once a byte has been written, memory is left as it is and
// only the recorded fill byte changes.
func (img *Image) SetFillByte(b byte) {
	img.fillByte = b
	if img.Empty() {
		for i := range img.mem {
			img.mem[i] = b
		}
	}
}

// Empty reports whether no byte has been written yet (lo_pc > hi_pc).
func (img *Image) Empty() bool { return img.loPC > img.hiPC }

// LoPC returns the lowest address written so far. Only meaningful when
// !Empty().
func (img *Image) LoPC() uint16 { return uint16(img.loPC) }

// HiPC returns the highest address written so far (inclusive). Only
// meaningful when !Empty().
func (img *Image) HiPC() uint16 { return uint16(img.hiPC) }

// Write stores b at address pc, updating the high/low-water marks. It
// fails with a Resource error if pc >= Size (spec.md: "any address >= 64
// KiB is a fatal error").
func (img *Image) Write(pc uint32, b byte) error {
	if pc >= Size {
		return asmerr.New(asmerr.Resource, "address %04X overflows 64K image", pc)
	}
	img.mem[pc] = b
	p := int(pc)
	if img.Empty() {
		img.loPC, img.hiPC = p, p
	} else {
		if p < img.loPC {
			img.loPC = p
		}
		if p > img.hiPC {
			img.hiPC = p
		}
	}
	return nil
}

// Read returns the byte at address pc, with out-of-range wrapping to 0..Size-1
// (used freely by the disassembler, which only ever reads addresses it
// already validated against Size).
func (img *Image) Read(pc uint16) byte {
	return img.mem[pc]
}

// Slice returns a read-only view of mem[lo:hi+1]. Callers must ensure
// lo <= hi.
func (img *Image) Slice(lo, hi uint16) []byte {
	return img.mem[lo : int(hi)+1]
}

// Touch extends the written range to include pc without altering its
// contents — used when loading a raw binary/COM/.z80 image, where every
// loaded byte is "written" even though it may equal the fill byte.
func (img *Image) Touch(pc uint16) {
	p := int(pc)
	if img.Empty() {
		img.loPC, img.hiPC = p, p
		return
	}
	if p < img.loPC {
		img.loPC = p
	}
	if p > img.hiPC {
		img.hiPC = p
	}
}
