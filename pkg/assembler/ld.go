package assembler

import "github.com/oisee/casdas/pkg/symtab"

// emitLd dispatches the full LD (dest, source) table, spec.md §4.F's
// largest single class: documented forms plus the undocumented IX/IY
// half-register moves and the two-immediate (IX+d),n form.
func (a *Assembler) emitLd(dst, src Operand) error {
	switch {
	// LD r,r' (includes (HL) on either side, but not both: that's HALT).
	case dst.is8BitReg() && src.is8BitReg():
		if dst.Reg == symtab.RegHLInd && src.Reg == symtab.RegHLInd {
			return a.errorf("LD (HL),(HL) is not an instruction (use HALT)")
		}
		return a.writeByte(0x40 + byte(slot8(dst.Reg))<<3 + byte(slot8(src.Reg)))

	// LD r,n (n is the 8-bit register group including (HL)).
	case dst.is8BitReg() && src.Kind == KindImm:
		if err := a.writeByte(0x06 + byte(slot8(dst.Reg))<<3); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)

	// LD r,(IX+d) / LD r,(IY+d).
	case dst.is8BitReg() && dst.Reg != symtab.RegHLInd && src.isIndexed():
		if err := a.writeBytes(indexPrefix(src.Reg), 0x46+byte(slot8(dst.Reg))<<3); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)

	// LD (IX+d),r / LD (IY+d),r.
	case dst.isIndexed() && src.is8BitReg() && src.Reg != symtab.RegHLInd:
		if err := a.writeBytes(indexPrefix(dst.Reg), 0x70+byte(slot8(src.Reg))); err != nil {
			return err
		}
		return a.patchOneByte(dst.Value, dst.Blame, dst.Patch)

	// LD (IX+d),n.
	case dst.isIndexed() && src.Kind == KindImm:
		if err := a.writeBytes(indexPrefix(dst.Reg), 0x36); err != nil {
			return err
		}
		if err := a.patchOneByte(dst.Value, dst.Blame, dst.Patch); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)

	// LD A,(BC) / LD A,(DE) / LD (BC),A / LD (DE),A.
	case dst.isReg(symtab.RegA) && src.isIndReg() && src.Reg == symtab.RegBC:
		return a.writeByte(0x0A)
	case dst.isReg(symtab.RegA) && src.isIndReg() && src.Reg == symtab.RegDE:
		return a.writeByte(0x1A)
	case dst.isIndReg() && dst.Reg == symtab.RegBC && src.isReg(symtab.RegA):
		return a.writeByte(0x02)
	case dst.isIndReg() && dst.Reg == symtab.RegDE && src.isReg(symtab.RegA):
		return a.writeByte(0x12)

	// LD A,(nn) / LD (nn),A.
	case dst.isReg(symtab.RegA) && src.Kind == KindIndAddr:
		if err := a.writeByte(0x3A); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)
	case dst.Kind == KindIndAddr && src.isReg(symtab.RegA):
		if err := a.writeByte(0x32); err != nil {
			return err
		}
		return a.patchTwoByte(dst.Value, dst.Blame, dst.Patch)

	// LD HL,(nn) / LD (nn),HL.
	case dst.isReg(symtab.RegHL) && src.Kind == KindIndAddr:
		if err := a.writeByte(0x2A); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)
	case dst.Kind == KindIndAddr && src.isReg(symtab.RegHL):
		if err := a.writeByte(0x22); err != nil {
			return err
		}
		return a.patchTwoByte(dst.Value, dst.Blame, dst.Patch)

	// LD dd,(nn) / LD (nn),dd for BC, DE, SP (ED-prefixed; HL's unprefixed
	// form is handled above).
	case dst.is16BitPair() && dst.Reg != symtab.RegHL && src.Kind == KindIndAddr:
		if err := a.writeBytes(0xED, 0x4B+byte(slot16(dst.Reg))<<4); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)
	case dst.Kind == KindIndAddr && src.is16BitPair() && src.Reg != symtab.RegHL:
		if err := a.writeBytes(0xED, 0x43+byte(slot16(src.Reg))<<4); err != nil {
			return err
		}
		return a.patchTwoByte(dst.Value, dst.Blame, dst.Patch)

	// LD IX,(nn) / LD (nn),IX / LD IY,(nn) / LD (nn),IY.
	case (dst.isReg(symtab.RegIX) || dst.isReg(symtab.RegIY)) && src.Kind == KindIndAddr:
		if err := a.writeBytes(indexPrefix(dst.Reg), 0x2A); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)
	case dst.Kind == KindIndAddr && (src.isReg(symtab.RegIX) || src.isReg(symtab.RegIY)):
		if err := a.writeBytes(indexPrefix(src.Reg), 0x22); err != nil {
			return err
		}
		return a.patchTwoByte(dst.Value, dst.Blame, dst.Patch)

	// LD dd,nn / LD IX,nn / LD IY,nn.
	case dst.is16BitPair() && src.Kind == KindImm:
		if err := a.writeByte(0x01 + byte(slot16(dst.Reg))<<4); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)
	case (dst.isReg(symtab.RegIX) || dst.isReg(symtab.RegIY)) && src.Kind == KindImm:
		if err := a.writeBytes(indexPrefix(dst.Reg), 0x21); err != nil {
			return err
		}
		return a.patchTwoByte(src.Value, src.Blame, src.Patch)

	// LD SP,HL / LD SP,IX / LD SP,IY.
	case dst.isReg(symtab.RegSP) && src.isReg(symtab.RegHL):
		return a.writeByte(0xF9)
	case dst.isReg(symtab.RegSP) && src.isReg(symtab.RegIX):
		return a.writeBytes(0xDD, 0xF9)
	case dst.isReg(symtab.RegSP) && src.isReg(symtab.RegIY):
		return a.writeBytes(0xFD, 0xF9)

	// LD A,I / LD A,R / LD I,A / LD R,A.
	case dst.isReg(symtab.RegA) && src.isReg(symtab.RegI):
		return a.writeBytes(0xED, 0x57)
	case dst.isReg(symtab.RegA) && src.isReg(symtab.RegR):
		return a.writeBytes(0xED, 0x5F)
	case dst.isReg(symtab.RegI) && src.isReg(symtab.RegA):
		return a.writeBytes(0xED, 0x47)
	case dst.isReg(symtab.RegR) && src.isReg(symtab.RegA):
		return a.writeBytes(0xED, 0x4F)

	// Undocumented IX/IY half-register moves: HX/LX/HY/LY substitute for
	// H/L in the normal r,r' table under a DD/FD prefix. Mixing an IX
	// half with an IY half, or a half with the real H/L/(HL), is illegal.
	case isHalfReg(dst.Reg) && (src.is8BitReg() && src.Reg != symtab.RegHLInd && src.Reg != symtab.RegH && src.Reg != symtab.RegL || isHalfReg(src.Reg)):
		if isHalfReg(src.Reg) && halfPrefix(src.Reg) != halfPrefix(dst.Reg) {
			return a.errorf("cannot mix IX and IY halves in one instruction")
		}
		srcSlot := slot8(src.Reg)
		if isHalfReg(src.Reg) {
			srcSlot = halfSlot(src.Reg)
		}
		return a.writeBytes(halfPrefix(dst.Reg), 0x40+byte(halfSlot(dst.Reg))<<3+byte(srcSlot))
	case isHalfReg(src.Reg) && dst.is8BitReg() && dst.Reg != symtab.RegHLInd && dst.Reg != symtab.RegH && dst.Reg != symtab.RegL:
		return a.writeBytes(halfPrefix(src.Reg), 0x40+byte(slot8(dst.Reg))<<3+byte(halfSlot(src.Reg)))
	case isHalfReg(dst.Reg) && src.Kind == KindImm:
		if err := a.writeBytes(halfPrefix(dst.Reg), 0x06+byte(halfSlot(dst.Reg))<<3); err != nil {
			return err
		}
		return a.patchOneByte(src.Value, src.Blame, src.Patch)
	}
	return a.errorf("illegal LD operand combination")
}
