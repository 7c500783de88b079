// Package format implements the binary-format I/O glue (component I,
// spec.md §4.I): loaders for raw binary / Intel HEX / the z80-asm ".z80"
// container, and writers for .bin/.com/.z80/.hex, selected by file
// extension.
package format

import (
	"path/filepath"
	"strings"

	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/hexfmt"
	"github.com/oisee/casdas/pkg/image"
)

// Z80Signature is the 8-byte header the z80-asm tool prefixes its ".z80"
// output with, before the little-endian base address.
// http://wwwhomes.uni-bielefeld.de/achim/z80-asm.html
const Z80Signature = "Z80ASM\x1A\n"

// Load reads raw into img at the given offset, dispatching on name's
// extension per spec.md §4.I: ".hex" goes through the Intel HEX reader,
// ".z80" through the signature+offset header, anything else is loaded as a
// raw binary at offset.
func Load(img *image.Image, name string, raw []byte, offset uint16) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hex":
		return loadHex(img, raw)
	case ".z80":
		return loadZ80(img, raw)
	default:
		return loadBin(img, raw, offset)
	}
}

func loadBin(img *image.Image, raw []byte, offset uint16) error {
	base := int(offset)
	if base+len(raw) > image.Size {
		return asmerr.New(asmerr.Resource, "file size (%d bytes) exceeds available RAM (%d bytes)", len(raw), image.Size-base)
	}
	for i, b := range raw {
		addr := uint16(base + i)
		if err := img.Write(uint32(addr), b); err != nil {
			return err
		}
		img.Touch(addr)
	}
	return nil
}

func loadZ80(img *image.Image, raw []byte) error {
	sig := len(Z80Signature)
	if len(raw) < sig+2 {
		return asmerr.New(asmerr.IO, "not a valid .z80 file: too short")
	}
	if string(raw[:sig]) != Z80Signature {
		return asmerr.New(asmerr.IO, "not a valid .z80 file: bad signature")
	}
	offset := uint16(raw[sig]) | uint16(raw[sig+1])<<8
	return loadBin(img, raw[sig+2:], offset)
}

func loadHex(img *image.Image, raw []byte) error {
	var loadErr error
	r := hexfmt.NewReader(func(typ hexfmt.RecordType, addr uint32, data []byte, checksumOK bool) {
		if typ != hexfmt.Data || loadErr != nil {
			return
		}
		for i, b := range data {
			a := addr + uint32(i)
			if a >= image.Size {
				loadErr = asmerr.New(asmerr.Resource, "hex record address %06X overflows 64K image", a)
				return
			}
			if err := img.Write(a, b); err != nil {
				loadErr = err
				return
			}
			img.Touch(uint16(a))
		}
	})
	r.FeedAll(raw)
	return loadErr
}

// Save renders img[lo..=hi] into the format named by name's extension and
// returns the bytes to write, per spec.md §4.I. ".com" forces the base
// address to 0x100 and is declined (a non-nil error) if the range doesn't
// start at or span past 0x100.
func Save(img *image.Image, name string, lo, hi uint16) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".com":
		return saveCom(img, lo, hi)
	case ".z80":
		return saveZ80(img, lo, hi), nil
	case ".hex":
		return saveHex(img, lo, hi), nil
	default:
		return saveBin(img, lo, hi), nil
	}
}

func saveBin(img *image.Image, lo, hi uint16) []byte {
	if hi < lo {
		return nil
	}
	return append([]byte(nil), img.Slice(lo, hi)...)
}

func saveCom(img *image.Image, lo, hi uint16) ([]byte, error) {
	if lo < 0x100 || hi <= 0x100 {
		return nil, asmerr.New(asmerr.Resource, "COM output requires code entirely at or above 0x100 (got %04X..%04X)", lo, hi)
	}
	return saveBin(img, 0x100, hi), nil
}

func saveZ80(img *image.Image, lo, hi uint16) []byte {
	out := make([]byte, 0, len(Z80Signature)+2+int(hi-lo)+1)
	out = append(out, Z80Signature...)
	out = append(out, byte(lo), byte(lo>>8))
	if hi >= lo {
		out = append(out, img.Slice(lo, hi)...)
	}
	return out
}

func saveHex(img *image.Image, lo, hi uint16) []byte {
	w := hexfmt.NewWriter(0)
	w.PutAtAddress(uint32(lo))
	if hi >= lo {
		for _, b := range img.Slice(lo, hi) {
			w.PutByte(b)
		}
	}
	var out []byte
	for _, line := range w.End() {
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}
