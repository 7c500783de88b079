// Package disasm implements the Z80 disassembler (component H, spec.md
// §4.H): the opcode-length table, the recursive reachability scan, and the
// mnemonic formatter, grounded directly on DasZ80's `OpLen`/`ParseOpcodes`/
// `Disassemble` (see _examples/original_source/Das.cpp).
package disasm

import "github.com/oisee/casdas/pkg/image"

// OpLen returns the length in bytes (1-4) of the instruction at addr.
// Undocumented DD/FD continuations that don't extend the table fall back
// to the unprefixed length — the prefix byte is treated as a single-byte
// NOP in front of the unprefixed opcode. An ED continuation outside the
// table is two bytes long.
func OpLen(img *image.Image, addr uint16) int {
	op := img.Read(addr)
	switch op {
	// ld Rd,Db; djnz/jr Js; AOp A,Db; out (Pb),A; in A,(Pb); CB-prefixed.
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E,
		0x10, 0x18, 0x20, 0x28, 0x30, 0x38,
		0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE,
		0xD3, 0xDB:
		return 2
	case 0xCB:
		return 2

	// ld BC/DE/HL/SP,Dw; ld (Aw),HL/A; ld HL/A,(Aw); jp cc,nn; jp nn; call nn; call cc,nn.
	case 0x01, 0x11, 0x21, 0x31,
		0x22, 0x2A, 0x32, 0x3A,
		0xC2, 0xCA, 0xD2, 0xDA, 0xE2, 0xEA, 0xF2, 0xFA,
		0xC3, 0xCD,
		0xC4, 0xCC, 0xD4, 0xDC, 0xE4, 0xEC, 0xF4, 0xFC:
		return 3

	case 0xDD, 0xFD:
		return 1 + indexedSecondaryLen(img, addr+1)

	case 0xED:
		return 1 + edSecondaryLen(img, addr+1)
	}
	return 1
}

// indexedSecondaryLen returns how many bytes beyond the DD/FD prefix the
// indexed instruction occupies, counting this secondary opcode byte (0 when
// another prefix follows, so the first prefix is a one-byte instruction).
func indexedSecondaryLen(img *image.Image, addr uint16) int {
	op := img.Read(addr)
	switch op {
	// inc/dec (Rx+Ds); ld Rd,(Rx+Ds); ld (Rx+Ds),Rs; AOp (Rx+Ds).
	case 0x34, 0x35,
		0x46, 0x4E, 0x56, 0x5E, 0x66, 0x6E, 0x7E,
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77,
		0x86, 0x8E, 0x96, 0x9E, 0xA6, 0xAE, 0xB6, 0xBE:
		return 2
	// ld Rx,Dw; ld (Aw),Rx; ld Rx,(Aw); ld (Rx+Ds),Db; CB-prefixed indexed.
	case 0x21, 0x22, 0x2A, 0x36, 0xCB:
		return 3
	// A further prefix: the first one stands alone.
	case 0xDD, 0xFD, 0xED:
		return 0
	}
	return OpLen(img, addr)
}

func edSecondaryLen(img *image.Image, addr uint16) int {
	switch img.Read(addr) {
	// ld (Aw),BC/DE/SP; ld BC/DE/SP,(Aw).
	case 0x43, 0x53, 0x73, 0x4B, 0x5B, 0x7B:
		return 3
	}
	return 1
}
