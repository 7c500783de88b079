// Package assembler implements the one-pass Z80 assembler (component F,
// spec.md §4.F): operand classification, emission dispatch over the full
// documented and undocumented opcode space, pseudo-ops, and the
// label/back-patch protocol.
package assembler

import (
	"fmt"
	"io"

	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/expr"
	"github.com/oisee/casdas/pkg/image"
	"github.com/oisee/casdas/pkg/lexer"
	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

// Assembler is the explicit context threaded through every emission
// function, replacing the current-PC / IF-gate / listing-flag / verbosity
// globals of the tool this is patterned on (spec.md §9).
type Assembler struct {
	Image *image.Image
	Table *symtab.Table
	Lex   *lexer.Lexer

	PC uint16

	gateOpen bool // single-level IF/ELSE/ENDIF gate; true when no IF is active or the condition held
	inIf     bool // an IF is currently open (for the "END inside open IF" check)
	elseSeen bool

	Listing   bool
	Verbosity int
	Diag      io.Writer // PRINT destination and diagnostic channel

	Ended bool // set by END; the driver stops feeding further lines once true

	lineNo int
	Errors []error // accumulated non-fatal diagnostics (listing continues)
}

// New returns an Assembler ready to process source lines starting at PC 0.
func New(diag io.Writer) *Assembler {
	tab := symtab.NewTable()
	lexer.InstallReserved(tab)
	img := image.New(0)
	return &Assembler{
		Image:    img,
		Table:    tab,
		Lex:      lexer.New(tab),
		gateOpen: true,
		Diag:     diag,
	}
}

// SetFill sets the image's background fill byte (the `-fXX` flag).
func (a *Assembler) SetFill(b byte) { a.Image.SetFillByte(b) }

// errorf builds a semantic LineError, left unanchored: AssembleLine attaches
// the line number and source text once the whole line's processing unwinds,
// via asmerr.WithLine.
func (a *Assembler) errorf(format string, args ...interface{}) error {
	return asmerr.New(asmerr.Semantic, format, args...)
}

// evalResolved evaluates toks[cursor:] and requires full resolution —
// used by ORG/EQU/DS/FILL n/IF, none of which allow forward references
// (spec.md §5).
func (a *Assembler) evalResolved(toks []symtab.Token, cursor int, what string) (int32, int, error) {
	res, err := expr.Eval(toks[cursor:])
	if err != nil {
		return 0, 0, a.errorf("%s: %v", what, err)
	}
	if res.Blame != nil {
		return 0, 0, a.errorf("%s requires a resolvable expression (forward reference to %q)", what, res.Blame.Name)
	}
	return res.Value, res.Consumed, nil
}

// writeByte writes b at the current PC and advances it, surfacing a
// resource error on overflow.
func (a *Assembler) writeByte(b byte) error {
	if err := a.Image.Write(uint32(a.PC), b); err != nil {
		return err
	}
	a.PC++
	return nil
}

func (a *Assembler) writeBytes(bs ...byte) error {
	for _, b := range bs {
		if err := a.writeByte(b); err != nil {
			return err
		}
	}
	return nil
}

// evalOperandValue evaluates toks[cursor:] for use as an instruction's
// immediate/displacement/address slot. Unlike evalResolved, an unresolved
// result is not an error: the caller retrofits the returned patch with a
// width and address once it knows the instruction's layout, per spec.md
// §4.F.
func (a *Assembler) evalOperandValue(toks []symtab.Token, cursor int) (value int32, consumed int, blame *symtab.Symbol, patch *symtab.Patch, err error) {
	res, err := expr.Eval(toks[cursor:])
	if err != nil {
		return 0, 0, nil, nil, a.errorf("%v", err)
	}
	return res.Value, res.Consumed, res.Blame, res.Patch, nil
}

// patchOneByte writes value at the current PC (filing a one-byte patch
// against blame if the expression was unresolved) and advances PC by one.
// Every emitter calls this for exactly the byte slot the evaluator just
// produced, so the addr is always implicitly "here".
func (a *Assembler) patchOneByte(value int32, blame *symtab.Symbol, patch *symtab.Patch) error {
	addr := a.PC
	if blame != nil {
		patch.Width = symtab.WidthOneByte
		patch.Addr = addr
		a.Table.AddPatch(blame, patch)
	}
	if err := a.Image.Write(uint32(addr), byte(value)); err != nil {
		return err
	}
	a.PC++
	return nil
}

// patchTwoByte writes a little-endian word at the current PC and advances
// PC by two.
func (a *Assembler) patchTwoByte(value int32, blame *symtab.Symbol, patch *symtab.Patch) error {
	addr := a.PC
	if blame != nil {
		patch.Width = symtab.WidthTwoByteLoHi
		patch.Addr = addr
		a.Table.AddPatch(blame, patch)
	}
	if err := a.Image.Write(uint32(addr), byte(value)); err != nil {
		return err
	}
	if err := a.Image.Write(uint32(addr)+1, byte(value>>8)); err != nil {
		return err
	}
	a.PC += 2
	return nil
}

// patchPCRel writes a pc_rel_byte displacement at the current PC,
// range-checking when the target is already known, and advances PC by
// one.
func (a *Assembler) patchPCRel(target int32, blame *symtab.Symbol, patch *symtab.Patch) error {
	addr := a.PC
	disp := target - int32(addr) - 1
	if blame != nil {
		patch.Width = symtab.WidthPCRelByte
		patch.Addr = addr
		a.Table.AddPatch(blame, patch)
	} else if disp < -128 || disp > 127 {
		return a.errorf("relative jump to %s out of range (%d)", numfmt.Hex16(uint16(target)), disp)
	}
	if err := a.Image.Write(uint32(addr), byte(disp)); err != nil {
		return err
	}
	a.PC++
	return nil
}

func undefinedReport(tab *symtab.Table) string {
	var s string
	for _, sym := range tab.Undefined() {
		s += fmt.Sprintf("----    %s is undefined!\n", sym.Name)
	}
	return s
}

// UndefinedReport returns the `---- <name> is undefined!` lines for every
// symbol still carrying unresolved patches at EOF (spec.md §7).
func (a *Assembler) UndefinedReport() string { return undefinedReport(a.Table) }
