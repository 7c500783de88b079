package disasm

import (
	"fmt"

	"github.com/oisee/casdas/pkg/image"
)

// State is the low-nibble classification of one address's mode byte.
type State uint8

const (
	Empty State = iota
	Opcode
	Operand
	Data
)

// Mode is one address's entry in the reachability scan's parallel array:
// the low nibble is a State, bit 4 is the label flag (spec.md §4.H).
type Mode uint8

const labelBit Mode = 0x10

// State returns the low-nibble classification, ignoring the label bit.
func (m Mode) State() State { return State(m & 0x0f) }

// HasLabel reports whether some reachable control transfer names this
// address.
func (m Mode) HasLabel() bool { return m&labelBit != 0 }

// Scan holds the per-address mode array produced by tracing control flow
// from a set of entry points, plus any non-fatal diagnostics collected
// along the way (e.g. "Illegal jump").
type Scan struct {
	img   *image.Image
	modes [image.Size]Mode
	Diags []string
}

// NewScan allocates a scan over img. Call Trace for each entry point before
// reading Modes.
func NewScan(img *image.Image) *Scan {
	return &Scan{img: img}
}

// Mode returns the recorded mode for addr.
func (s *Scan) Mode(addr uint16) Mode { return s.modes[addr] }

func (s *Scan) setState(addr uint16, st State) { s.modes[addr] = (s.modes[addr] &^ 0x0f) | Mode(st) }
func (s *Scan) setLabel(addr uint16)            { s.modes[addr] |= labelBit }

// Trace walks the instruction stream starting at addr, marking opcode and
// operand bytes, recursing into every statically-known control-flow target,
// and tail-calling into unconditional jumps — the exact traversal spec.md
// §4.H describes, ported from DasZ80's ParseOpcodes.
func (s *Scan) Trace(addr uint16) {
	label := true
	for {
		if label {
			s.setLabel(addr)
		}
		switch s.Mode(addr).State() {
		case Opcode:
			return // cycle: already fully processed from here
		case Operand:
			s.Diags = append(s.Diags, fmt.Sprintf("Illegal jump at addr %04XH", addr))
			return
		}

		n := OpLen(s.img, addr)
		s.setState(addr, Opcode)
		for i := 1; i < n; i++ {
			s.setState(addr+uint16(i), Operand)
		}
		if label {
			s.setLabel(addr)
			label = false
		}

		nextIP := addr + uint16(n)
		op := s.img.Read(addr)

		switch {
		case isJpCc(op), isCallCc(op):
			s.Trace(s.word16(addr))
		case isJrCc(op):
			s.Trace(relTarget(addr, s.img.Read(addr+1)))
		case isRst(op):
			s.Trace(uint16(op & 0x38))
		case op == 0x10: // DJNZ e
			s.Trace(relTarget(addr, s.img.Read(addr+1)))
		case op == 0xC3: // JP nn
			nextIP = s.word16(addr)
			label = true
		case op == 0x18: // JR e
			nextIP = relTarget(addr, s.img.Read(addr+1))
			label = true
		case op == 0xCD: // CALL nn
			s.Trace(s.word16(addr))
		case op == 0xC9: // RET
			return
		case op == 0xE9: // JP (HL): target unknowable, stop.
			return
		case (op == 0xDD || op == 0xFD) && s.img.Read(addr+1) == 0xE9:
			// JP (IX)/(IY): target unknowable, stop.
			return
		case op == 0xED:
			b1 := s.img.Read(addr + 1)
			if b1 == 0x45 || b1 == 0x4D { // RETN / RETI
				return
			}
		}
		addr = nextIP
	}
}

func (s *Scan) word16(addr uint16) uint16 {
	lo := s.img.Read(addr + 1)
	hi := s.img.Read(addr + 2)
	return uint16(lo) | uint16(hi)<<8
}

func relTarget(addr uint16, disp byte) uint16 {
	return addr + 2 + uint16(int16(int8(disp)))
}

func isJpCc(op byte) bool {
	switch op {
	case 0xC2, 0xCA, 0xD2, 0xDA, 0xE2, 0xEA, 0xF2, 0xFA:
		return true
	}
	return false
}

func isCallCc(op byte) bool {
	switch op {
	case 0xC4, 0xCC, 0xD4, 0xDC, 0xE4, 0xEC, 0xF4, 0xFC:
		return true
	}
	return false
}

func isJrCc(op byte) bool {
	switch op {
	case 0x20, 0x28, 0x30, 0x38:
		return true
	}
	return false
}

func isRst(op byte) bool {
	switch op {
	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF:
		return true
	}
	return false
}
