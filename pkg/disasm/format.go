package disasm

import (
	"fmt"

	"github.com/oisee/casdas/pkg/image"
	"github.com/oisee/casdas/pkg/numfmt"
)

var regNames8 = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var regNames16 = [4]string{"BC", "DE", "HL", "SP"}
var condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var aluMnemonics = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
var shiftMnemonics = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
var accOps0 = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}

// Labeler formats an address for display: a label name when one is known,
// or a bare "$<hex>" otherwise (spec.md §4.H).
type Labeler func(addr uint16) string

func hexLabeler(addr uint16) string { return "$" + numfmt.PlainHex16(addr) }

// Format renders the instruction at addr as a mnemonic string and returns
// its length in bytes. It is a pure function of (addr, img, label); no
// global state is consulted, per spec.md §4.H.
func Format(addr uint16, img *image.Image, label Labeler) (string, int) {
	if label == nil {
		label = hexLabeler
	}
	n := OpLen(img, addr)
	op := img.Read(addr)
	x, y, z := op>>6&3, op>>3&7, op&7

	switch op {
	case 0xCB:
		return formatCB(img.Read(addr+1), label), n
	case 0xED:
		return formatED(addr, img, label), n
	case 0xDD, 0xFD:
		return formatIndexed(addr, img, label, indexName(op)), n
	}

	switch x {
	case 0:
		return formatX0(addr, img, label, y, z), n
	case 1:
		if op == 0x76 {
			return "HALT", n
		}
		return fmt.Sprintf("LD      %s,%s", regNames8[y], regNames8[z]), n
	case 2:
		return fmt.Sprintf("%-8s%s", aluMnemonics[y], regNames8[z]), n
	case 3:
		return formatX3(addr, img, label, y, z), n
	}
	return "???", n
}

func indexName(prefix byte) string {
	if prefix == 0xFD {
		return "IY"
	}
	return "IX"
}

func formatX0(addr uint16, img *image.Image, label Labeler, y, z byte) string {
	byte1 := img.Read(addr + 1)
	word := wordAt(img, addr)
	switch z {
	case 0:
		switch y {
		case 0:
			return "NOP"
		case 1:
			return "EX      AF,AF'"
		case 2:
			return fmt.Sprintf("DJNZ    %s", label(relTarget(addr, byte1)))
		case 3:
			return fmt.Sprintf("JR      %s", label(relTarget(addr, byte1)))
		default:
			return fmt.Sprintf("JR      %s,%s", condNames[y&3], label(relTarget(addr, byte1)))
		}
	case 1:
		if y&1 == 0 {
			return fmt.Sprintf("LD      %s,%s", regNames16[y>>1], label(word))
		}
		return fmt.Sprintf("ADD     HL,%s", regNames16[y>>1])
	case 2:
		switch y {
		case 0:
			return "LD      (BC),A"
		case 1:
			return "LD      A,(BC)"
		case 2:
			return "LD      (DE),A"
		case 3:
			return "LD      A,(DE)"
		case 4:
			return fmt.Sprintf("LD      (%s),HL", label(word))
		case 5:
			return fmt.Sprintf("LD      HL,(%s)", label(word))
		case 6:
			return fmt.Sprintf("LD      (%s),A", label(word))
		case 7:
			return fmt.Sprintf("LD      A,(%s)", label(word))
		}
	case 3:
		if y&1 == 0 {
			return fmt.Sprintf("INC     %s", regNames16[y>>1])
		}
		return fmt.Sprintf("DEC     %s", regNames16[y>>1])
	case 4:
		return fmt.Sprintf("INC     %s", regNames8[y])
	case 5:
		return fmt.Sprintf("DEC     %s", regNames8[y])
	case 6:
		return fmt.Sprintf("LD      %s,$%02X", regNames8[y], byte1)
	case 7:
		return accOps0[y]
	}
	return "???"
}

func formatX3(addr uint16, img *image.Image, label Labeler, y, z byte) string {
	byte1 := img.Read(addr + 1)
	word := wordAt(img, addr)
	switch z {
	case 0:
		return fmt.Sprintf("RET     %s", condNames[y])
	case 1:
		yq, lo := y>>1, y&1
		if lo == 0 {
			if yq == 3 {
				return "POP     AF"
			}
			return fmt.Sprintf("POP     %s", regNames16[yq])
		}
		switch yq {
		case 0:
			return "RET"
		case 1:
			return "EXX"
		case 2:
			return "JP      (HL)"
		case 3:
			return "LD      SP,HL"
		}
	case 2:
		return fmt.Sprintf("JP      %s,%s", condNames[y], label(word))
	case 3:
		switch y {
		case 0:
			return fmt.Sprintf("JP      %s", label(word))
		case 1:
			return formatCB(img.Read(addr+1), label)
		case 2:
			return fmt.Sprintf("OUT     ($%02X),A", byte1)
		case 3:
			return fmt.Sprintf("IN      A,($%02X)", byte1)
		case 4:
			return "EX      (SP),HL"
		case 5:
			return "EX      DE,HL"
		case 6:
			return "DI"
		case 7:
			return "EI"
		}
	case 4:
		return fmt.Sprintf("CALL    %s,%s", condNames[y], label(word))
	case 5:
		yq, lo := y>>1, y&1
		if lo == 0 {
			if yq == 3 {
				return "PUSH    AF"
			}
			return fmt.Sprintf("PUSH    %s", regNames16[yq])
		}
		switch yq {
		case 0:
			return fmt.Sprintf("CALL    %s", label(word))
		case 2:
			return formatED(addr, img, label)
		default:
			return "???"
		}
	case 6:
		return fmt.Sprintf("%-8s$%02X", aluMnemonics[y], byte1)
	case 7:
		return fmt.Sprintf("RST     $%02X", y*8)
	}
	return "???"
}

// formatCB formats a CB-prefixed secondary opcode (shift/rotate, BIT, RES,
// SET over an 8-bit register or (HL)).
func formatCB(op byte, label Labeler) string {
	x, y, z := op>>6&3, op>>3&7, op&7
	switch x {
	case 0:
		return fmt.Sprintf("%-8s%s", shiftMnemonics[y], regNames8[z])
	case 1:
		return fmt.Sprintf("BIT     %d,%s", y, regNames8[z])
	case 2:
		return fmt.Sprintf("RES     %d,%s", y, regNames8[z])
	case 3:
		return fmt.Sprintf("SET     %d,%s", y, regNames8[z])
	}
	return "???"
}

// formatED formats an ED-prefixed secondary opcode. addr points at the ED
// byte itself.
func formatED(addr uint16, img *image.Image, label Labeler) string {
	op := img.Read(addr + 1)
	x, y, z := op>>6&3, op>>3&7, op&7
	word := uint16(img.Read(addr+2)) | uint16(img.Read(addr+3))<<8
	switch x {
	case 1:
		switch z {
		case 0:
			if y == 6 {
				return "IN      (C)"
			}
			return fmt.Sprintf("IN      %s,(C)", regNames8[y])
		case 1:
			if y == 6 {
				return "OUT     (C),0"
			}
			return fmt.Sprintf("OUT     (C),%s", regNames8[y])
		case 2:
			yq, lo := y>>1, y&1
			if lo == 0 {
				return fmt.Sprintf("SBC     HL,%s", regNames16[yq])
			}
			return fmt.Sprintf("ADC     HL,%s", regNames16[yq])
		case 3:
			yq, lo := y>>1, y&1
			if lo == 0 {
				return fmt.Sprintf("LD      ($%04X),%s", word, regNames16[yq])
			}
			return fmt.Sprintf("LD      %s,($%04X)", regNames16[yq], word)
		case 4:
			if y == 0 {
				return "NEG"
			}
			return "???"
		case 5:
			switch y {
			case 0:
				return "RETN"
			case 1:
				return "RETI"
			}
			return "???"
		case 6:
			im := y
			if im != 0 {
				im--
			}
			return fmt.Sprintf("IM      %d", im)
		case 7:
			switch y {
			case 0:
				return "LD      I,A"
			case 1:
				return "LD      R,A"
			case 2:
				return "LD      A,I"
			case 3:
				return "LD      A,R"
			case 4:
				return "RRD"
			case 5:
				return "RLD"
			}
			return "???"
		}
	case 2:
		switch z {
		case 0:
			switch y & 3 {
			case 0:
				return "LDI"
			case 1:
				return "LDD"
			case 2:
				return "LDIR"
			case 3:
				return "LDDR"
			}
		case 1:
			switch y & 3 {
			case 0:
				return "CPI"
			case 1:
				return "CPD"
			case 2:
				return "CPIR"
			case 3:
				return "CPDR"
			}
		case 2:
			switch y & 3 {
			case 0:
				return "INI"
			case 1:
				return "IND"
			case 2:
				return "INIR"
			case 3:
				return "INDR"
			}
		case 3:
			switch y & 3 {
			case 0:
				return "OUTI"
			case 1:
				return "OUTD"
			case 2:
				return "OTIR"
			case 3:
				return "OTDR"
			}
		}
		return "???"
	}
	return "???"
}

// formatIndexed formats a DD/FD-prefixed instruction. addr points at the
// prefix byte; rx is "IX" or "IY".
func formatIndexed(addr uint16, img *image.Image, label Labeler, rx string) string {
	op := img.Read(addr + 1)
	byte1 := img.Read(addr + 2)
	word := uint16(img.Read(addr+2)) | uint16(img.Read(addr+3))<<8
	switch op {
	case 0x09:
		return fmt.Sprintf("ADD     %s,BC", rx)
	case 0x19:
		return fmt.Sprintf("ADD     %s,DE", rx)
	case 0x29:
		return fmt.Sprintf("ADD     %s,%s", rx, rx)
	case 0x39:
		return fmt.Sprintf("ADD     %s,SP", rx)
	case 0x21:
		return fmt.Sprintf("LD      %s,%s", rx, label(word))
	case 0x22:
		return fmt.Sprintf("LD      (%s),%s", label(word), rx)
	case 0x2A:
		return fmt.Sprintf("LD      %s,(%s)", rx, label(word))
	case 0x23:
		return fmt.Sprintf("INC     %s", rx)
	case 0x2B:
		return fmt.Sprintf("DEC     %s", rx)
	case 0x34:
		return fmt.Sprintf("INC     (%s+$%02X)", rx, byte1)
	case 0x35:
		return fmt.Sprintf("DEC     (%s+$%02X)", rx, byte1)
	case 0x36:
		return fmt.Sprintf("LD      (%s+$%02X),$%02X", rx, byte1, img.Read(addr+3))
	case 0x46, 0x4E, 0x56, 0x5E, 0x66, 0x6E, 0x7E:
		y := (op >> 3) & 7
		return fmt.Sprintf("LD      %s,(%s+$%02X)", regNames8[y], rx, byte1)
	case 0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77:
		z := op & 7
		return fmt.Sprintf("LD      (%s+$%02X),%s", rx, byte1, regNames8[z])
	case 0x86, 0x8E, 0x96, 0x9E, 0xA6, 0xAE, 0xB6, 0xBE:
		y := (op >> 3) & 7
		return fmt.Sprintf("%-8s(%s+$%02X)", aluMnemonics[y], rx, byte1)
	case 0xE1:
		return fmt.Sprintf("POP     %s", rx)
	case 0xE3:
		return fmt.Sprintf("EX      (SP),%s", rx)
	case 0xE5:
		return fmt.Sprintf("PUSH    %s", rx)
	case 0xE9:
		return fmt.Sprintf("JP      (%s)", rx)
	case 0xF9:
		return fmt.Sprintf("LD      SP,%s", rx)
	case 0xCB:
		return formatIndexedCB(img.Read(addr+3), byte1, rx)
	}
	return "???"
}

// formatIndexedCB formats the tertiary DD/FD CB d op byte: shift/BIT/RES/SET
// over (Rx+d). The register field of a DD/FD CB opcode is ignored by real
// Z80 hardware (and by this formatter): only the (Rx+d) form is emitted.
func formatIndexedCB(op, disp byte, rx string) string {
	x, y := op>>6&3, op>>3&7
	switch x {
	case 0:
		return fmt.Sprintf("%-8s(%s+$%02X)", shiftMnemonics[y], rx, disp)
	case 1:
		return fmt.Sprintf("BIT     %d,(%s+$%02X)", y, rx, disp)
	case 2:
		return fmt.Sprintf("RES     %d,(%s+$%02X)", y, rx, disp)
	case 3:
		return fmt.Sprintf("SET     %d,(%s+$%02X)", y, rx, disp)
	}
	return "???"
}

func wordAt(img *image.Image, addr uint16) uint16 {
	return uint16(img.Read(addr+1)) | uint16(img.Read(addr+2))<<8
}
