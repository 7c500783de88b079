package assembler

import (
	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/expr"
	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

// AssembleLine tokenizes and processes one source line: label definition,
// the IF/ELSE/ENDIF gate, and pseudo-op/mnemonic dispatch, in the order
// spec.md §4.F's label/back-patch protocol lays out. Errors are anchored to
// the line number and source text before being returned.
func (a *Assembler) AssembleLine(line string) error {
	a.lineNo++
	a.Lex.PC = a.PC
	toks, err := a.Lex.Tokenize(line)
	if err != nil {
		return asmerr.WithLine(err, a.lineNo, line)
	}
	if err := a.assembleTokens(toks); err != nil {
		return asmerr.WithLine(err, a.lineNo, line)
	}
	return nil
}

func (a *Assembler) assembleTokens(toks []symtab.Token) error {
	cursor := 0
	if toks[cursor].Kind == symtab.Sym {
		n, err := a.consumeLabel(toks, cursor)
		if err != nil {
			return err
		}
		cursor += n
	}
	if toks[cursor].IsBad() {
		return nil
	}

	tok := toks[cursor]
	if tok.Kind == symtab.Op {
		switch tok.Code {
		case symtab.OpIf, symtab.OpElse, symtab.OpEndif:
			return a.gateControl(tok.Code, toks, cursor+1)
		}
	}

	if !a.gateOpen {
		return nil
	}

	if tok.Kind != symtab.Op {
		return a.errorf("expected a mnemonic or pseudo-op")
	}
	switch {
	case tok.Code >= symtab.PseudoBase && tok.Code < symtab.ClassBase:
		return a.dispatchPseudo(tok, toks, cursor+1)
	case tok.Code >= symtab.ClassBase && tok.Code < symtab.Reg8Base:
		return a.dispatchMnemonic(tok, toks, cursor+1)
	}
	return a.errorf("expected a mnemonic or pseudo-op")
}

// consumeLabel implements spec.md §4.F's "Label and back-patch protocol":
// an optional leading symbol, an optional ':', then either `EQU`/`=` or an
// implicit value of the current PC. While the gate is closed the label is
// recognized (so the cursor still advances correctly) but never defined.
func (a *Assembler) consumeLabel(toks []symtab.Token, cursor int) (int, error) {
	sym := toks[cursor].Sym
	start := cursor
	cursor++
	if cursor < len(toks) && toks[cursor].Kind == symtab.Op && toks[cursor].Code == symtab.Code(':') {
		cursor++
	}

	if cursor < len(toks) && toks[cursor].Kind == symtab.Op && toks[cursor].Code == symtab.OpEqu {
		cursor++
		if !a.gateOpen {
			// Labels on gated lines are not defined; the rest of the line
			// is discarded regardless of its contents, so there is no need
			// to evaluate or even scan past the EQU expression.
			return len(toks) - 1 - start, nil
		}
		if sym.Defined {
			return 0, a.errorf("symbol %q already defined", sym.Name)
		}
		value, n, err := a.evalResolved(toks, cursor, "EQU")
		if err != nil {
			return 0, err
		}
		cursor += n
		if err := a.expectEnd(toks, cursor); err != nil {
			return 0, err
		}
		if err := a.defineAndDrain(sym, value); err != nil {
			return 0, err
		}
		return cursor - start, nil
	}

	if !a.gateOpen {
		return cursor - start, nil
	}
	if sym.Defined {
		return 0, a.errorf("symbol %q already defined", sym.Name)
	}
	if err := a.defineAndDrain(sym, int32(a.PC)); err != nil {
		return 0, err
	}
	return cursor - start, nil
}

// defineAndDrain marks sym defined and re-evaluates every patch filed
// against it, committing resolved ones to the image and transferring
// still-unresolved ones onto their new blamed symbol (spec.md §4.C's
// invariant: "patches are drained in the order they were registered").
func (a *Assembler) defineAndDrain(sym *symtab.Symbol, value int32) error {
	if err := a.Table.Define(sym, value); err != nil {
		return a.errorf("%v", err)
	}
	return a.Table.Drain(sym, a.reEvalPatch, a.commitPatch)
}

func (a *Assembler) reEvalPatch(p *symtab.Patch) (int32, bool, *symtab.Symbol) {
	res, err := expr.Eval(p.Expr)
	if err != nil {
		a.Errors = append(a.Errors, err)
		return 0, true, nil
	}
	if res.Blame != nil {
		return 0, false, res.Blame
	}
	return res.Value, true, nil
}

func (a *Assembler) commitPatch(p *symtab.Patch, value int32) error {
	switch p.Width {
	case symtab.WidthOneByte:
		return a.Image.Write(uint32(p.Addr), byte(value))
	case symtab.WidthTwoByteLoHi:
		if err := a.Image.Write(uint32(p.Addr), byte(value)); err != nil {
			return err
		}
		return a.Image.Write(uint32(p.Addr)+1, byte(value>>8))
	case symtab.WidthPCRelByte:
		disp := value - int32(p.Addr) - 1
		if disp < -128 || disp > 127 {
			return a.errorf("relative jump to %s out of range (%d)", numfmt.Hex16(uint16(value)), disp)
		}
		return a.Image.Write(uint32(p.Addr), byte(disp))
	}
	return a.errorf("patch with unknown width")
}

// gateControl handles IF/ELSE/ENDIF. These run even while the gate is
// already closed (so ELSE/ENDIF of the very IF that closed it can still
// fire); nesting is explicitly unsupported (spec.md §9).
func (a *Assembler) gateControl(code symtab.Code, toks []symtab.Token, cursor int) error {
	switch code {
	case symtab.OpIf:
		if a.inIf {
			return a.errorf("nested IF is not supported")
		}
		value, n, err := a.evalResolved(toks, cursor, "IF")
		if err != nil {
			return err
		}
		if err := a.expectEnd(toks, cursor+n); err != nil {
			return err
		}
		a.inIf = true
		a.elseSeen = false
		a.gateOpen = value != 0
		return nil

	case symtab.OpElse:
		if !a.inIf {
			return a.errorf("ELSE without a matching IF")
		}
		if a.elseSeen {
			return a.errorf("duplicate ELSE")
		}
		a.elseSeen = true
		a.gateOpen = !a.gateOpen
		return nil

	case symtab.OpEndif:
		if !a.inIf {
			return a.errorf("ENDIF without a matching IF")
		}
		a.inIf = false
		a.elseSeen = false
		a.gateOpen = true
		return nil
	}
	return a.errorf("unreachable gate control code")
}

// dispatchMnemonic reduces the operand list and routes to the emit function
// matching the mnemonic's class, validating operand count along the way
// (spec.md §4.F's "Emission dispatch").
func (a *Assembler) dispatchMnemonic(tok symtab.Token, toks []symtab.Token, cursor int) error {
	sym := tok.Sym
	ops, err := a.reduceOperandList(toks, cursor)
	if err != nil {
		return err
	}
	switch tok.Code {
	case symtab.ClassUnOp:
		if len(ops) != 0 {
			return a.errorf("%s takes no operands", sym.Name)
		}
		return a.emitUnOp(sym)
	case symtab.ClassBinOp:
		if len(ops) != 0 {
			return a.errorf("%s takes no operands", sym.Name)
		}
		return a.emitBinOp(sym)
	case symtab.ClassOpHL:
		if len(ops) > 1 || (len(ops) == 1 && !ops[0].isHLInd()) {
			return a.errorf("%s takes no operand or (HL)", sym.Name)
		}
		return a.emitOpHL(sym)
	case symtab.ClassAOp:
		if len(ops) != 1 && len(ops) != 2 {
			return a.errorf("%s requires one or two operands", sym.Name)
		}
		return a.emitAOp(sym, ops)
	case symtab.ClassIOp:
		if len(ops) != 1 {
			return a.errorf("%s requires one operand", sym.Name)
		}
		return a.emitIOp(sym, ops[0])
	case symtab.ClassBitOp:
		if len(ops) != 2 {
			return a.errorf("%s requires two operands", sym.Name)
		}
		return a.emitBitOp(sym, ops[0], ops[1])
	case symtab.ClassIM:
		if len(ops) != 1 {
			return a.errorf("IM requires one operand")
		}
		return a.emitIM(ops[0])
	case symtab.ClassPOp:
		if sym.Name == "IN" && len(ops) == 1 {
			// IN (C): undocumented flags-only form, mirroring OUT (C),0.
			return a.emitPOp(sym, []Operand{{}, ops[0]})
		}
		if len(ops) != 2 {
			return a.errorf("%s requires two operands", sym.Name)
		}
		return a.emitPOp(sym, ops)
	case symtab.ClassRefOp:
		if len(ops) != 1 && len(ops) != 2 {
			return a.errorf("%s requires one or two operands", sym.Name)
		}
		return a.emitRefOp(sym, ops)
	case symtab.ClassRet:
		if len(ops) > 1 {
			return a.errorf("RET takes at most one operand")
		}
		return a.emitRet(ops)
	case symtab.ClassRst:
		if len(ops) != 1 {
			return a.errorf("RST requires one operand")
		}
		return a.emitRst(ops[0])
	case symtab.ClassDjnz:
		if len(ops) != 1 {
			return a.errorf("DJNZ requires one operand")
		}
		return a.emitDjnz(ops[0])
	case symtab.ClassEx:
		if len(ops) != 2 {
			return a.errorf("EX requires two operands")
		}
		return a.emitEx(ops[0], ops[1])
	case symtab.ClassLd:
		if len(ops) != 2 {
			return a.errorf("LD requires two operands")
		}
		return a.emitLd(ops[0], ops[1])
	case symtab.ClassStOp:
		if len(ops) != 1 {
			return a.errorf("%s requires one operand", sym.Name)
		}
		return a.emitStOp(sym, ops[0])
	case symtab.ClassShOp:
		if len(ops) != 1 {
			return a.errorf("%s requires one operand", sym.Name)
		}
		return a.emitShOp(sym, ops[0])
	}
	return a.errorf("unhandled mnemonic class")
}

// reduceOperandList reduces a comma-separated operand list to completion,
// rejecting any trailing garbage after the last operand.
func (a *Assembler) reduceOperandList(toks []symtab.Token, cursor int) ([]Operand, error) {
	var ops []Operand
	if cursor >= len(toks) || toks[cursor].IsBad() {
		return ops, nil
	}
	for {
		op, n, err := a.reduceOperand(toks, cursor)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		cursor += n
		if cursor < len(toks) && toks[cursor].Kind == symtab.Op && toks[cursor].Code == symtab.Code(',') {
			cursor++
			continue
		}
		break
	}
	if err := a.expectEnd(toks, cursor); err != nil {
		return nil, err
	}
	return ops, nil
}
