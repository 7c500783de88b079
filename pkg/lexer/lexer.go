// Package lexer tokenizes one Z80 assembly source line into a bounded
// command stream (component D, spec.md §4.D).
package lexer

import (
	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

// Lexer tokenizes lines against a shared symbol table, carrying the
// current PC so a bare '$' resolves to "here".
type Lexer struct {
	Table *symtab.Table
	PC    uint16
}

// New returns a Lexer over tab. Callers must have already called
// InstallReserved on tab.
func New(tab *symtab.Table) *Lexer {
	return &Lexer{Table: tab}
}

// Tokenize converts one source line into a Bad-terminated token stream, per
// spec.md §4.D. line must be <= numfmt.LineMax bytes.
func (lx *Lexer) Tokenize(line string) ([]symtab.Token, error) {
	if len(line) > numfmt.LineMax {
		return nil, asmerr.New(asmerr.Lexical, "line exceeds %d characters", numfmt.LineMax)
	}
	orig := []byte(line)
	up := numfmt.UpperCopy(orig)

	var toks []symtab.Token
	i := 0
	n := len(up)

	for {
		if len(toks) >= numfmt.CmdBufMax-1 {
			return nil, asmerr.New(asmerr.Lexical, "too many tokens on one line")
		}
		for i < n && numfmt.IsSpace(up[i]) {
			i++
		}
		if i >= n || up[i] == ';' {
			break
		}

		ch := up[i]
		dot := false
		if ch == '.' {
			i++
			if i >= n {
				return nil, asmerr.New(asmerr.Lexical, "'.' at end of line")
			}
			ch = up[i]
			dot = true
		}

		var (
			base   int
			dollar bool
		)
		switch {
		case ch == '$' && !dot:
			if i+1 < n && numfmt.IsAlNum(up[i+1]) && up[i+1] <= 'F' {
				base = 16
				i++
				ch = up[i]
			} else {
				dollar = true
			}
		case ch == '0' && i+1 < n && up[i+1] == 'X' && i+2 < n && isHexDigit(up[i+2]):
			i += 2 // skip "0X"
			ch = up[i]
			base = 16
		}

		switch {
		case dollar:
			toks = append(toks, symtab.Token{Kind: symtab.Num, Num: int32(lx.PC)})
			i++

		case numfmt.IsAlNum(ch):
			tok, newI, err := lx.lexIdentOrNumber(up, i, ch, base, dot)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = newI

		default:
			tok, newI, err := lx.lexPunct(orig, up, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = newI
		}
	}

	toks = append(toks, symtab.Token{Kind: symtab.Bad})
	return toks, nil
}

func isHexDigit(c byte) bool {
	return numfmt.DigitValue(c, 16) >= 0
}

// lexIdentOrNumber implements spec.md §4.D's three-pass numeric decision
// and falls back to an identifier lookup when no base applies.
func (lx *Lexer) lexIdentOrNumber(up []byte, i int, ch byte, base int, dot bool) (symtab.Token, int, error) {
	n := len(up)
	var numBuf []byte
	var maxCh byte
	for {
		numBuf = append(numBuf, ch)
		if i+1 < n && numfmt.IsAlNum(up[i+1]) {
			if ch > maxCh {
				maxCh = ch
			}
			i++
			ch = up[i]
			continue
		}
		// ch is the last character of this token.
		if base == 16 {
			if maxCh <= 'F' && ch <= 'F' {
				base = 16
			} else {
				base = 0
			}
		} else if len(numBuf) > 1 {
			first := numBuf[0]
			switch {
			case numfmt.IsDigit(first) && ch == 'H' && maxCh <= 'F':
				base = 16
			case ch == 'D' && maxCh <= '9':
				base = 10
			case (ch == 'O' || ch == 'Q') && maxCh <= '7':
				base = 8
			case ch == 'B' && maxCh <= '1':
				base = 2
			}
			if base > 0 {
				numBuf = numBuf[:len(numBuf)-1] // drop the consumed suffix
			}
		}
		if base == 0 && numfmt.IsDigit(ch) && maxCh <= '9' {
			base = 10
		}
		i++
		break
	}

	if base > 0 {
		var value int32
		for _, c := range numBuf {
			d := numfmt.DigitValue(c, base)
			if d < 0 {
				return symtab.Token{}, 0, asmerr.New(asmerr.Lexical, "invalid digit %q in base-%d numeral", c, base)
			}
			value = value*int32(base) + int32(d)
		}
		return symtab.Token{Kind: symtab.Num, Num: value}, i, nil
	}

	if numfmt.IsDigit(numBuf[0]) {
		return symtab.Token{}, 0, asmerr.New(asmerr.Lexical, "symbols can't start with a digit")
	}

	name := string(numBuf)
	if len(name) > numfmt.SymbolNameMax {
		// Truncate rather than reject, matching the original's fixed
		// MAXSYMBOLNAME buffer: excess characters are simply dropped.
		name = name[:numfmt.SymbolNameMax]
	}
	sym := lx.Table.Intern(name)
	if sym.Kind == 0 {
		if dot {
			return symtab.Token{}, 0, asmerr.New(asmerr.Semantic, "symbols can't start with '.'")
		}
		if !sym.FirstSeen {
			sym.FirstSeen = true
			sym.Defined = false
		}
		return symtab.Token{Kind: symtab.Sym, Sym: sym}, i, nil
	}
	if dot && sym.Kind < symtab.PseudoBase || dot && sym.Kind > 0x1FF {
		return symtab.Token{}, 0, asmerr.New(asmerr.Semantic, "opcodes can't start with '.'")
	}
	return symtab.Token{Kind: symtab.Op, Code: sym.Kind, Sym: sym}, i, nil
}

// lexPunct handles quotes, the >>/<< digraphs, '=' as EQU, and plain
// single-character operators.
func (lx *Lexer) lexPunct(orig, up []byte, i int) (symtab.Token, int, error) {
	n := len(up)
	ch := up[i]
	switch ch {
	case '>':
		if i+1 < n && up[i+1] == '>' {
			return symtab.Token{Kind: symtab.Op, Code: symtab.OpShiftRight}, i + 2, nil
		}
	case '<':
		if i+1 < n && up[i+1] == '<' {
			return symtab.Token{Kind: symtab.Op, Code: symtab.OpShiftLeft}, i + 2, nil
		}
	case '=':
		return symtab.Token{Kind: symtab.Op, Code: symtab.OpEqu}, i + 1, nil
	case '\'':
		// 'c' yields Num(c) using the original, unfolded byte; an
		// unclosed quote degrades to Op('\'').
		if i+2 < n && up[i+2] == '\'' {
			return symtab.Token{Kind: symtab.Num, Num: int32(orig[i+1])}, i + 3, nil
		}
		return symtab.Token{Kind: symtab.Op, Code: symtab.Code('\'')}, i + 1, nil
	case '"':
		j := i + 1
		for j < n && up[j] != '"' {
			j++
		}
		if j >= n {
			return symtab.Token{}, 0, asmerr.New(asmerr.Lexical, "unterminated string literal")
		}
		buf := make([]byte, j-(i+1))
		copy(buf, orig[i+1:j])
		return symtab.Token{Kind: symtab.Str, Str: buf}, j + 1, nil
	}
	return symtab.Token{Kind: symtab.Op, Code: symtab.Code(ch)}, i + 1, nil
}
