package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/casdas/pkg/numfmt"
	"github.com/oisee/casdas/pkg/symtab"
)

func newLexer() *Lexer {
	tab := symtab.NewTable()
	InstallReserved(tab)
	return New(tab)
}

func TestTokenizeMnemonicAndRegisters(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("LD A,(HL)")
	require.NoError(t, err)

	require.True(t, len(toks) >= 5)
	assert.Equal(t, symtab.Op, toks[0].Kind)
	assert.Equal(t, symtab.ClassLd, toks[0].Code)
	assert.Equal(t, symtab.Op, toks[1].Kind)
	assert.Equal(t, symtab.RegA, toks[1].Code)
	assert.True(t, toks[len(toks)-1].IsBad())
}

func TestTokenizeHexDollarPrefix(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("LD A,$FF")
	require.NoError(t, err)
	var num *symtab.Token
	for i := range toks {
		if toks[i].Kind == symtab.Num {
			num = &toks[i]
		}
	}
	require.NotNil(t, num)
	assert.Equal(t, int32(0xFF), num.Num)
}

func TestTokenizeHexHSuffix(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("LD A,0FFH")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Num && tok.Num == 0xFF {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeDecimalDefault(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("DB 42")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Num && tok.Num == 42 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeBinarySuffix(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("DB 1010B")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Num && tok.Num == 0b1010 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeCurrentPC(t *testing.T) {
	lx := newLexer()
	lx.PC = 0x1234
	toks, err := lx.Tokenize("JP $")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Num && tok.Num == 0x1234 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeCharLiteral(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("DB 'A'")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Num && tok.Num == 'A' {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeStringLiteral(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize(`DM "HI"`)
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Str {
			assert.Equal(t, "HI", string(tok.Str))
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	lx := newLexer()
	_, err := lx.Tokenize(`DM "HI`)
	require.Error(t, err)
}

func TestTokenizeUserSymbol(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("LOOP: DJNZ LOOP")
	require.NoError(t, err)
	var syms []string
	for _, tok := range toks {
		if tok.Kind == symtab.Sym {
			syms = append(syms, tok.Sym.Name)
		}
	}
	assert.Equal(t, []string{"LOOP", "LOOP"}, syms)
}

func TestTokenizeSymbolNameTruncatesAtMax(t *testing.T) {
	lx := newLexer()
	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGH" // 34 chars, > SymbolNameMax
	toks, err := lx.Tokenize(long)
	require.NoError(t, err)
	require.Equal(t, symtab.Sym, toks[0].Kind)
	assert.Equal(t, long[:numfmt.SymbolNameMax], toks[0].Sym.Name)
}

func TestTokenizeShiftOperators(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("EQU 1<<2")
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symtab.Op && tok.Code == symtab.OpShiftLeft {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeCommentOnlyLine(t *testing.T) {
	lx := newLexer()
	toks, err := lx.Tokenize("   ; just a comment")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.True(t, toks[0].IsBad())
}

func TestTokenizeLineTooLong(t *testing.T) {
	lx := newLexer()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'A'
	}
	_, err := lx.Tokenize(string(long))
	require.Error(t, err)
}
