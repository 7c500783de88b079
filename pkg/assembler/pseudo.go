package assembler

import (
	"fmt"

	"github.com/oisee/casdas/pkg/image"
	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

// dispatchPseudo handles every pseudo-op except the IF/ELSE/ENDIF gate
// controls, which assembleTokens routes separately so they still run while
// the gate is closed (spec.md §4.F's "Pseudo-ops" section).
func (a *Assembler) dispatchPseudo(tok symtab.Token, toks []symtab.Token, cursor int) error {
	switch tok.Code {
	case symtab.OpOrg:
		value, n, err := a.evalResolved(toks, cursor, "ORG")
		if err != nil {
			return err
		}
		if err := a.expectEnd(toks, cursor+n); err != nil {
			return err
		}
		if value < 0 || value > 0xFFFF {
			return a.errorf("ORG address %d (%s) out of range", value, numfmt.Hex16(uint16(value)))
		}
		a.PC = uint16(value)
		return nil

	case symtab.OpEqu:
		return a.errorf("EQU requires a preceding label")

	case symtab.OpDB, symtab.OpDM:
		return a.emitDataList(toks, cursor, 1)

	case symtab.OpDW:
		return a.emitDataList(toks, cursor, 2)

	case symtab.OpDS:
		value, n, err := a.evalResolved(toks, cursor, "DS")
		if err != nil {
			return err
		}
		if err := a.expectEnd(toks, cursor+n); err != nil {
			return err
		}
		return a.emitDS(value)

	case symtab.OpFill:
		return a.emitFillPseudo(toks, cursor)

	case symtab.OpPrint:
		return a.emitPrint(toks, cursor)

	case symtab.OpEnd:
		if a.inIf {
			return a.errorf("END inside an open IF")
		}
		a.Ended = true
		return nil
	}
	return a.errorf("unhandled pseudo-op")
}

// emitDataList handles DB/DEFB, DM/DEFM (width 1, string literals allowed)
// and DW/DEFW (width 2) — a comma-separated list of expressions or, for
// width 1, string literals emitted verbatim.
func (a *Assembler) emitDataList(toks []symtab.Token, cursor int, width int) error {
	if cursor >= len(toks) || toks[cursor].IsBad() {
		return a.errorf("expected at least one value")
	}
	for {
		if toks[cursor].Kind == symtab.Str && width == 1 {
			for _, b := range toks[cursor].Str {
				if err := a.writeByte(b); err != nil {
					return err
				}
			}
			cursor++
		} else {
			value, n, blame, patch, err := a.evalOperandValue(toks, cursor)
			if err != nil {
				return err
			}
			cursor += n
			if width == 1 {
				if err := a.patchOneByte(value, blame, patch); err != nil {
					return err
				}
			} else {
				if err := a.patchTwoByte(value, blame, patch); err != nil {
					return err
				}
			}
		}
		if cursor < len(toks) && toks[cursor].Kind == symtab.Op && toks[cursor].Code == symtab.Code(',') {
			cursor++
			continue
		}
		break
	}
	return a.expectEnd(toks, cursor)
}

// emitDS advances PC by n without writing: the skipped region reads back as
// the image's background fill byte, per spec.md §4.F.
func (a *Assembler) emitDS(n int32) error {
	if n < 0 {
		return a.errorf("DS count must be non-negative")
	}
	end := int32(a.PC) + n
	if end > image.Size {
		return a.errorf("DS overflows 64K image")
	}
	a.PC = uint16(end)
	return nil
}

func (a *Assembler) emitFillPseudo(toks []symtab.Token, cursor int) error {
	count, n, err := a.evalResolved(toks, cursor, "FILL")
	if err != nil {
		return err
	}
	cursor += n
	value := int32(0)
	if cursor < len(toks) && toks[cursor].Kind == symtab.Op && toks[cursor].Code == symtab.Code(',') {
		cursor++
		value, n, err = a.evalResolved(toks, cursor, "FILL")
		if err != nil {
			return err
		}
		cursor += n
	}
	if err := a.expectEnd(toks, cursor); err != nil {
		return err
	}
	return a.emitFill(count, value)
}

// emitFill writes n copies of byte(v) starting at the current PC. The
// fill value is truncated to a byte: the spec.md §9 resolution of an open
// question about source variants that disagreed on this.
func (a *Assembler) emitFill(n, v int32) error {
	if n < 0 {
		return a.errorf("FILL count must be non-negative")
	}
	b := byte(v)
	for i := int32(0); i < n; i++ {
		if err := a.writeByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) emitPrint(toks []symtab.Token, cursor int) error {
	if cursor >= len(toks) || toks[cursor].Kind != symtab.Str {
		return a.errorf("PRINT requires a string literal")
	}
	if a.Diag != nil {
		fmt.Fprintf(a.Diag, "%s\n", toks[cursor].Str)
	}
	return a.expectEnd(toks, cursor+1)
}

// expectEnd reports an error if any non-Bad token remains at cursor — used
// after every pseudo-op to reject trailing garbage (spec.md §7's "EQU with
// trailing tokens" diagnostic generalizes to every pseudo-op here).
func (a *Assembler) expectEnd(toks []symtab.Token, cursor int) error {
	if cursor < len(toks) && !toks[cursor].IsBad() {
		return a.errorf("unexpected trailing tokens")
	}
	return nil
}
