package assembler

import (
	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

// mnemonicBytes unpacks the up-to-two base opcode bytes a reserved
// mnemonic carries in its Symbol.Value (spec.md §4.C: "packs
// (encoding_bytes << 16) | kind").
func mnemonicBytes(sym *symtab.Symbol) (b1, b2 byte) {
	enc := uint16(sym.Value >> 16)
	return byte(enc >> 8), byte(enc)
}

// emitUnOp/BinOp/OpHL: no operands (OpHL optionally takes a decorative
// (HL) that contributes no bytes); verbatim 1 or 2 byte opcodes.
func (a *Assembler) emitUnOp(sym *symtab.Symbol) error {
	b1, _ := mnemonicBytes(sym)
	return a.writeByte(b1)
}

func (a *Assembler) emitBinOp(sym *symtab.Symbol) error {
	b1, b2 := mnemonicBytes(sym)
	return a.writeBytes(b1, b2)
}

func (a *Assembler) emitOpHL(sym *symtab.Symbol) error {
	return a.emitBinOp(sym)
}

// emitAOp handles ADC/ADD/AND/CP/OR/SBC/SUB/XOR: A,s for all eight, plus
// the 16-bit ADD/ADC/SBC HL,rp and ADD IX/IY,rp forms.
func (a *Assembler) emitAOp(sym *symtab.Symbol, ops []Operand) error {
	if len(ops) == 2 && (ops[0].is16BitPair() || ops[0].isReg(symtab.RegIX) || ops[0].isReg(symtab.RegIY)) {
		return a.emit16BitAOp(sym, ops[0], ops[1])
	}
	// Unary form (A implicit) or explicit "A,s".
	src := ops[0]
	if len(ops) == 2 {
		src = ops[1]
	}
	regByte, immByte := mnemonicBytes(sym)
	switch {
	case src.is8BitReg():
		return a.writeByte(regByte + byte(slot8(src.Reg)))
	case src.isIndexed():
		prefix := indexPrefix(src.Reg)
		d := src.Value
		if err := a.writeBytes(prefix, regByte+6); err != nil {
			return err
		}
		return a.patchOneByte(d, src.Blame, src.Patch)
	case isHalfReg(src.Reg):
		prefix := halfPrefix(src.Reg)
		return a.writeBytes(prefix, regByte+byte(halfSlot(src.Reg)))
	default: // immediate
		if err := a.writeByte(immByte); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)
	}
}

// emit16BitAOp covers ADD HL,rp / ADC HL,rp / SBC HL,rp / ADD IX,rp / ADD
// IY,rp. dst is HL, IX, or IY; src is a 16-bit pair (or IX/IY echoing the
// dest's own slot).
func (a *Assembler) emit16BitAOp(sym *symtab.Symbol, dst, src Operand) error {
	slot, err := pairSlotFor(dst.Reg, src.Reg)
	if err != nil {
		return err
	}
	switch sym.Name {
	case "ADD":
		if dst.Reg == symtab.RegIX || dst.Reg == symtab.RegIY {
			return a.writeBytes(indexPrefix(dst.Reg), 0x09+byte(slot)<<4)
		}
		return a.writeByte(0x09 + byte(slot)<<4)
	case "ADC":
		return a.writeBytes(0xED, 0x4A+byte(slot)<<4)
	case "SBC":
		return a.writeBytes(0xED, 0x42+byte(slot)<<4)
	}
	return a.errorf("16-bit form not supported for this mnemonic")
}

// pairSlotFor returns the rp slot (0=BC,1=DE,2=HL-or-dst-itself,3=SP) for
// a src register alongside dst (HL, IX, or IY), so that ADD IX,IX and
// ADD HL,HL both resolve to slot 2.
func pairSlotFor(dst, src symtab.Code) (int, error) {
	if src == dst {
		return 2, nil
	}
	switch src {
	case symtab.RegBC:
		return 0, nil
	case symtab.RegDE:
		return 1, nil
	case symtab.RegSP:
		return 3, nil
	case symtab.RegHL:
		if dst == symtab.RegIX || dst == symtab.RegIY {
			return 0, fmtErr()
		}
		return 2, nil
	}
	return 0, fmtErr()
}

func fmtErr() error { return errIllegalOperand }

// emitIOp handles INC/DEC over the full operand universe.
func (a *Assembler) emitIOp(sym *symtab.Symbol, op Operand) error {
	b1, _ := mnemonicBytes(sym) // 0x04 (INC) or 0x05 (DEC): 8-bit base; 16-bit base is +0x03 ("03"/"0B")
	switch {
	case op.is8BitReg():
		return a.writeByte(b1 + byte(slot8(op.Reg))<<3)
	case op.is16BitPair():
		base16 := byte(0x03)
		if b1 == 0x05 {
			base16 = 0x0B
		}
		return a.writeByte(base16 + byte(slot16(op.Reg))<<4)
	case op.isReg(symtab.RegIX), op.isReg(symtab.RegIY):
		base16 := byte(0x03)
		if b1 == 0x05 {
			base16 = 0x0B
		}
		return a.writeBytes(indexPrefix(op.Reg), base16+2<<4)
	case op.isIndexed():
		prefix := indexPrefix(op.Reg)
		d := op.Value
		if err := a.writeBytes(prefix, b1+6<<3); err != nil {
			return err
		}
		return a.patchOneByte(d, op.Blame, op.Patch)
	case isHalfReg(op.Reg):
		return a.writeBytes(halfPrefix(op.Reg), b1+byte(halfSlot(op.Reg))<<3)
	}
	return a.errorf("illegal operand for INC/DEC")
}

// emitBitOp handles BIT/RES/SET n,s.
func (a *Assembler) emitBitOp(sym *symtab.Symbol, bit, target Operand) error {
	_, base := mnemonicBytes(sym)
	if bit.Kind != KindImm || bit.Value < 0 || bit.Value > 7 {
		return a.errorf("bit index out of range 0..7")
	}
	n := byte(bit.Value)
	switch {
	case target.is8BitReg():
		return a.writeBytes(0xCB, base+n<<3+byte(slot8(target.Reg)))
	case target.isIndexed():
		prefix := indexPrefix(target.Reg)
		d := target.Value
		if err := a.writeBytes(prefix, 0xCB); err != nil {
			return err
		}
		if err := a.patchOneByte(d, target.Blame, target.Patch); err != nil {
			return err
		}
		return a.writeByte(base + n<<3 + 6)
	}
	return a.errorf("illegal operand for BIT/RES/SET")
}

var imBases = [3]byte{0x46, 0x56, 0x5E}

func (a *Assembler) emitIM(n Operand) error {
	if n.Kind != KindImm || n.Value < 0 || n.Value > 2 {
		return a.errorf("IM operand must be 0, 1 or 2")
	}
	return a.writeBytes(0xED, imBases[n.Value])
}

// emitPOp handles IN/OUT.
func (a *Assembler) emitPOp(sym *symtab.Symbol, ops []Operand) error {
	dst, src := ops[0], ops[1]
	// Normalize so dst is always the register side and src the port side:
	// IN r,(C)/IN A,(n) already have that shape; OUT swaps its operands.
	isOut := sym.Name == "OUT"
	if isOut {
		dst, src = ops[1], ops[0]
	}
	switch {
	case src.Kind == KindIndAddr && !isOut: // IN A,(n)
		if err := a.writeBytes(0xDB); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)
	case src.Kind == KindIndAddr && isOut: // OUT (n),A
		if err := a.writeBytes(0xD3); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)
	case src.isIndReg() && src.Reg == symtab.RegC && !isOut: // IN r,(C) / IN (C)
		reg := byte(6)
		if dst.is8BitReg() {
			reg = byte(slot8(dst.Reg))
		}
		return a.writeBytes(0xED, 0x40+reg<<3)
	case src.isIndReg() && src.Reg == symtab.RegC && isOut: // OUT (C),r / OUT (C),0
		reg := byte(6)
		if dst.is8BitReg() {
			reg = byte(slot8(dst.Reg))
		}
		return a.writeBytes(0xED, 0x41+reg<<3)
	}
	return a.errorf("illegal operand for IN/OUT")
}

func (o Operand) isIndReg() bool { return o.Kind == KindIndReg }

// emitRefOp handles JP/JR/CALL.
func (a *Assembler) emitRefOp(sym *symtab.Symbol, ops []Operand) error {
	name := sym.Name
	var cond *int
	var target Operand
	if len(ops) == 2 {
		slot, err := condSlot(ops[0].Reg)
		if err != nil {
			return a.errorf("illegal condition")
		}
		if name == "JR" && slot > 3 {
			return a.errorf("JR only supports NZ, Z, NC, C")
		}
		cond = &slot
		target = ops[1]
	} else {
		target = ops[0]
	}

	switch name {
	case "JP":
		if cond == nil {
			switch target.Reg {
			case symtab.RegHLInd:
				if target.isHLInd() {
					return a.writeByte(0xE9)
				}
			case symtab.RegIX:
				if target.Kind == KindIndReg {
					return a.writeBytes(0xDD, 0xE9)
				}
			case symtab.RegIY:
				if target.Kind == KindIndReg {
					return a.writeBytes(0xFD, 0xE9)
				}
			}
			if err := a.writeByte(0xC3); err != nil {
				return err
			}
			return a.patchTwoByte(target.Value, target.Blame, target.Patch)
		}
		if err := a.writeByte(0xC2 + byte(*cond)<<3); err != nil {
			return err
		}
		return a.patchTwoByte(target.Value, target.Blame, target.Patch)

	case "CALL":
		if cond == nil {
			if err := a.writeByte(0xCD); err != nil {
				return err
			}
			return a.patchTwoByte(target.Value, target.Blame, target.Patch)
		}
		if err := a.writeByte(0xC4 + byte(*cond)<<3); err != nil {
			return err
		}
		return a.patchTwoByte(target.Value, target.Blame, target.Patch)

	case "JR":
		opcode := byte(0x18)
		if cond != nil {
			opcode = 0x20 + byte(*cond)<<3
		}
		if err := a.writeByte(opcode); err != nil {
			return err
		}
		return a.patchPCRel(target.Value, target.Blame, target.Patch)
	}
	return a.errorf("unreachable RefOp mnemonic %s", name)
}

// emitRet handles RET [cc].
func (a *Assembler) emitRet(ops []Operand) error {
	if len(ops) == 0 {
		return a.writeByte(0xC9)
	}
	slot, err := condSlot(ops[0].Reg)
	if err != nil {
		return a.errorf("illegal condition for RET")
	}
	return a.writeByte(0xC0 + byte(slot)<<3)
}

// rstTargets is the set of legal RST vectors, including the "friendly"
// bare-decimal coercion spec.md §9 flags as preserved-but-questionable
// source behavior: 10, 18, 20, 28, 30, 38 are accepted as their
// hexadecimal-look-alike vectors (RST 10 means RST 10H, i.e. 0x10).
var rstTargets = map[int32]byte{
	0x00: 0x00, 0x08: 0x08, 0x10: 0x10, 0x18: 0x18,
	0x20: 0x20, 0x28: 0x28, 0x30: 0x30, 0x38: 0x38,
	// Bare decimal 10, 18, 20, 28, 30, 38 are accepted as the hex-alike
	// vector (RST 10 means RST 10H): preserved source behavior, not a
	// generic decimal-to-hex conversion.
	10: 0x10, 18: 0x18, 20: 0x20, 28: 0x28, 30: 0x30, 38: 0x38,
}

func (a *Assembler) emitRst(op Operand) error {
	if op.Kind != KindImm {
		return a.errorf("RST requires an immediate vector")
	}
	if op.Value >= 0 && op.Value <= 7 {
		// Index form: RST 0..7 selects vector n*8.
		return a.writeByte(0xC7 + byte(op.Value)<<3)
	}
	if v, ok := rstTargets[op.Value]; ok {
		return a.writeByte(0xC7 + v)
	}
	if op.Value >= 0 && op.Value <= 0xFF {
		return a.errorf("RST vector %s is not 0x00,0x08,...,0x38 or an index 0..7", numfmt.Hex8(uint8(op.Value)))
	}
	return a.errorf("RST vector must be 0x00,0x08,...,0x38 or an index 0..7")
}

func (a *Assembler) emitDjnz(op Operand) error {
	if err := a.writeByte(0x10); err != nil {
		return err
	}
	return a.patchPCRel(op.Value, op.Blame, op.Patch)
}

// emitEx handles the fixed EX operand pairs.
func (a *Assembler) emitEx(a0, a1 Operand) error {
	switch {
	case a0.Kind == KindIndReg && a0.Reg == symtab.RegSP && a1.isReg(symtab.RegHL):
		return a.writeByte(0xE3)
	case a0.Kind == KindIndReg && a0.Reg == symtab.RegSP && a1.isReg(symtab.RegIX):
		return a.writeBytes(0xDD, 0xE3)
	case a0.Kind == KindIndReg && a0.Reg == symtab.RegSP && a1.isReg(symtab.RegIY):
		return a.writeBytes(0xFD, 0xE3)
	case a0.isReg(symtab.RegDE) && a1.isReg(symtab.RegHL):
		return a.writeByte(0xEB)
	case a0.isReg(symtab.RegAF) && a1.isReg(symtab.RegAFp):
		return a.writeByte(0x08)
	}
	return a.errorf("illegal EX operand pair")
}

// emitStOp handles PUSH/POP.
func (a *Assembler) emitStOp(sym *symtab.Symbol, op Operand) error {
	b1, _ := mnemonicBytes(sym)
	switch op.Reg {
	case symtab.RegBC, symtab.RegDE, symtab.RegHL, symtab.RegAF:
		slot := pushPopSlot(op.Reg)
		return a.writeByte(b1 + byte(slot)<<4)
	case symtab.RegIX:
		return a.writeBytes(0xDD, b1+2<<4)
	case symtab.RegIY:
		return a.writeBytes(0xFD, b1+2<<4)
	}
	return a.errorf("illegal operand for PUSH/POP")
}

func pushPopSlot(c symtab.Code) int {
	switch c {
	case symtab.RegBC:
		return 0
	case symtab.RegDE:
		return 1
	case symtab.RegHL:
		return 2
	case symtab.RegAF:
		return 3
	}
	return 0
}

// emitShOp handles the shift/rotate group (RLC/RRC/RL/RR/SLA/SRA/SLL/SRL).
func (a *Assembler) emitShOp(sym *symtab.Symbol, op Operand) error {
	_, base := mnemonicBytes(sym)
	switch {
	case op.is8BitReg():
		return a.writeBytes(0xCB, base+byte(slot8(op.Reg)))
	case op.isIndexed():
		prefix := indexPrefix(op.Reg)
		d := op.Value
		if err := a.writeBytes(prefix, 0xCB); err != nil {
			return err
		}
		if err := a.patchOneByte(d, op.Blame, op.Patch); err != nil {
			return err
		}
		return a.writeByte(base + 6)
	}
	return a.errorf("illegal operand for shift/rotate")
}

func indexPrefix(c symtab.Code) byte {
	if c == symtab.RegIY {
		return 0xFD
	}
	return 0xDD
}

func isHalfReg(c symtab.Code) bool {
	switch c {
	case symtab.RegHX, symtab.RegLX, symtab.RegHY, symtab.RegLY:
		return true
	}
	return false
}

func halfPrefix(c symtab.Code) byte {
	if c == symtab.RegHY || c == symtab.RegLY {
		return 0xFD
	}
	return 0xDD
}

// halfSlot returns the slot an undocumented IX/IY half occupies in place
// of H (slot 4) or L (slot 5) within the normal 8-bit register table.
func halfSlot(c symtab.Code) int {
	if c == symtab.RegHX || c == symtab.RegHY {
		return 4
	}
	return 5
}

var errIllegalOperand = &illegalOperandErr{}

type illegalOperandErr struct{}

func (*illegalOperandErr) Error() string { return "illegal operand combination" }

