package assembler

import (
	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/symtab"
)

// Kind tags what shape an operand took after reduction.
type Kind uint8

const (
	KindNone    Kind = iota
	KindReg          // bare register or condition; Reg holds its token code
	KindIndReg       // (R): Reg holds the inner register's code
	KindIndexed      // (IX+d) / (IY+d): Reg is RegIX/RegIY, Value is d
	KindIndAddr      // (expr): Value is the address
	KindImm          // expr: Value is the immediate
)

// Operand is the result of reducing a token subsequence at an instruction
// position, per spec.md §4.F's operand classification.
type Operand struct {
	Kind  Kind
	Reg   symtab.Code
	Value int32
	Blame *symtab.Symbol
	Patch *symtab.Patch
}

func (o Operand) isReg(code symtab.Code) bool { return o.Kind == KindReg && o.Reg == code }

func (o Operand) is8BitReg() bool {
	return o.Kind == KindReg && o.Reg >= symtab.Reg8Base && o.Reg <= symtab.RegA
}

func (o Operand) isHLInd() bool { return o.Kind == KindReg && o.Reg == symtab.RegHLInd }

func (o Operand) isIndexed() bool { return o.Kind == KindIndexed }

func (o Operand) is16BitPair() bool {
	return o.Kind == KindReg && o.Reg >= symtab.Reg16Base && o.Reg <= symtab.RegSP
}

// slot8 returns the 0..7 register slot for an 8-bit register or (HL),
// per spec.md §3's folding of (HL) into 0x306.
func slot8(code symtab.Code) int { return int(code - symtab.Reg8Base) }

// slot16 returns the 0..3 slot for a 16-bit pair (BC,DE,HL,SP).
func slot16(code symtab.Code) int { return int(code - symtab.Reg16Base) }

// reduceOperand consumes one operand starting at toks[cursor] and returns
// it along with the number of tokens consumed.
func (a *Assembler) reduceOperand(toks []symtab.Token, cursor int) (Operand, int, error) {
	if cursor >= len(toks) {
		return Operand{}, 0, a.errorf("missing operand")
	}
	tok := toks[cursor]

	if tok.Kind == symtab.Op && tok.Code == '(' {
		return a.reduceIndirect(toks, cursor)
	}

	if tok.Kind == symtab.Op && isRegisterOrCondCode(tok.Code) {
		reg := tok.Code
		consumed := 1
		if reg == symtab.RegAF && cursor+1 < len(toks) {
			if n := toks[cursor+1]; n.Kind == symtab.Op && n.Code == symtab.Code('\'') {
				reg = symtab.RegAFp
				consumed = 2
			}
		}
		return Operand{Kind: KindReg, Reg: reg}, consumed, nil
	}

	value, n, blame, patch, err := a.evalOperandValue(toks, cursor)
	if err != nil {
		return Operand{}, 0, err
	}
	return Operand{Kind: KindImm, Value: value, Blame: blame, Patch: patch}, n, nil
}

// reduceIndirect handles every parenthesized operand form: (R), (IX+d),
// (IY+d), and (expr).
func (a *Assembler) reduceIndirect(toks []symtab.Token, cursor int) (Operand, int, error) {
	inner := cursor + 1
	if inner < len(toks) {
		tok := toks[inner]
		if tok.Kind == symtab.Op && (tok.Code == symtab.RegIX || tok.Code == symtab.RegIY) {
			base := tok.Code
			after := inner + 1
			if after < len(toks) && toks[after].Kind == symtab.Op && toks[after].Code == ')' {
				return Operand{Kind: KindIndReg, Reg: base}, after - cursor + 1, nil
			}
			// (IX+d) / (IX-d)
			sign := int32(1)
			if after < len(toks) && toks[after].Kind == symtab.Op && toks[after].Code == '-' {
				sign = -1
				after++
			} else if after < len(toks) && toks[after].Kind == symtab.Op && toks[after].Code == '+' {
				after++
			}
			value, n, blame, patch, err := a.evalOperandValue(toks, after)
			if err != nil {
				return Operand{}, 0, err
			}
			after += n
			if after >= len(toks) || !(toks[after].Kind == symtab.Op && toks[after].Code == ')') {
				return Operand{}, 0, a.errorf("missing closing bracket")
			}
			return Operand{Kind: KindIndexed, Reg: base, Value: sign * value, Blame: blame, Patch: patch}, after - cursor + 1, nil
		}
		if tok.Kind == symtab.Op && isIndirectableReg(tok.Code) {
			after := inner + 1
			if after < len(toks) && toks[after].Kind == symtab.Op && toks[after].Code == ')' {
				if tok.Code == symtab.RegHL {
					// (HL) folds into the 8-bit register slot (spec.md §3:
					// "0x306"), unifying LD r,(HL) with LD r,r'.
					return Operand{Kind: KindReg, Reg: symtab.RegHLInd}, after - cursor + 1, nil
				}
				return Operand{Kind: KindIndReg, Reg: tok.Code}, after - cursor + 1, nil
			}
		}
	}
	// (expr)
	value, n, blame, patch, err := a.evalOperandValue(toks, inner)
	if err != nil {
		return Operand{}, 0, err
	}
	end := inner + n
	if end >= len(toks) || !(toks[end].Kind == symtab.Op && toks[end].Code == ')') {
		return Operand{}, 0, a.errorf("mismatched parentheses")
	}
	return Operand{Kind: KindIndAddr, Value: value, Blame: blame, Patch: patch}, end - cursor + 1, nil
}

func isIndirectableReg(c symtab.Code) bool {
	switch c {
	case symtab.RegBC, symtab.RegDE, symtab.RegHL, symtab.RegSP, symtab.RegC:
		return true
	}
	return false
}

func isRegisterOrCondCode(c symtab.Code) bool {
	if c >= symtab.Reg8Base && c <= 0x333 {
		return true
	}
	return isCondCode(c)
}

var condSlots = map[symtab.Code]int{
	symtab.CondNZ: 0,
	symtab.CondZ:  1,
	symtab.CondNC: 2,
	// C = 3, recovered positionally from register C.
	symtab.CondPO: 4,
	symtab.CondPE: 5,
	symtab.CondP:  6,
	symtab.CondM:  7,
}

func isCondCode(c symtab.Code) bool {
	if c == symtab.RegC {
		return true // positional condition C
	}
	_, ok := condSlots[c]
	return ok
}

// condSlot returns the 0..7 condition slot used by JP/CALL/RET cc and the
// four low conditions usable by JR. Register C, when it appears in
// condition position, is condition C (slot 3).
func condSlot(c symtab.Code) (int, error) {
	if c == symtab.RegC {
		return 3, nil
	}
	if s, ok := condSlots[c]; ok {
		return s, nil
	}
	return 0, asmerr.New(asmerr.Semantic, "not a condition")
}
