package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/casdas/pkg/symtab"
)

func num(n int32) symtab.Token { return symtab.Token{Kind: symtab.Num, Num: n} }
func op(c symtab.Code) symtab.Token { return symtab.Token{Kind: symtab.Op, Code: c} }
func bad() symtab.Token { return symtab.Token{Kind: symtab.Bad} }

func TestEvalAddition(t *testing.T) {
	toks := []symtab.Token{num(2), op('+'), num(3), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(5), res.Value)
	assert.Equal(t, 3, res.Consumed)
	assert.Nil(t, res.Blame)
}

func TestEvalPrecedence(t *testing.T) {
	// 2 + 3 * 4 = 14
	toks := []symtab.Token{num(2), op('+'), num(3), op('*'), num(4), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(14), res.Value)
}

func TestEvalParenGrouping(t *testing.T) {
	// (2 + 3) * 4 = 20
	toks := []symtab.Token{op('('), num(2), op('+'), num(3), op(')'), op('*'), num(4), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(20), res.Value)
}

func TestEvalUnaryNegate(t *testing.T) {
	toks := []symtab.Token{op('-'), num(5), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), res.Value)
}

func TestEvalLogicalNot(t *testing.T) {
	toks := []symtab.Token{op('!'), num(0), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(1), res.Value)

	toks2 := []symtab.Token{op('!'), num(7), bad()}
	res2, err := Eval(toks2)
	require.NoError(t, err)
	assert.Equal(t, int32(0), res2.Value)
}

func TestEvalShifts(t *testing.T) {
	toks := []symtab.Token{num(1), op(symtab.OpShiftLeft), num(4), bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Equal(t, int32(16), res.Value)
}

func TestEvalDivisionByZeroIsFatal(t *testing.T) {
	toks := []symtab.Token{num(1), op('/'), num(0), bad()}
	_, err := Eval(toks)
	require.Error(t, err)
}

func TestEvalUnclosedBracket(t *testing.T) {
	toks := []symtab.Token{op('('), num(1), bad()}
	_, err := Eval(toks)
	require.Error(t, err)
}

func TestEvalUndefinedSymbolProducesPatch(t *testing.T) {
	tab := symtab.NewTable()
	sym := tab.Intern("TARGET")

	toks := []symtab.Token{num(1), op('+'), {Kind: symtab.Sym, Sym: sym}, bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	require.NotNil(t, res.Blame)
	assert.Same(t, sym, res.Blame)
	require.NotNil(t, res.Patch)
	assert.Equal(t, symtab.WidthUnknown, res.Patch.Width)
	// The duplicated sub-expression omits the trailing Bad of the caller's
	// slice and carries its own.
	assert.True(t, res.Patch.Expr[len(res.Patch.Expr)-1].IsBad())
	assert.Equal(t, int32(1), res.Value) // placeholder arithmetic with Sym.Value==0
}

func TestEvalDefinedSymbolResolves(t *testing.T) {
	tab := symtab.NewTable()
	sym := tab.Intern("DONE")
	require.NoError(t, tab.Define(sym, 99))

	toks := []symtab.Token{{Kind: symtab.Sym, Sym: sym}, bad()}
	res, err := Eval(toks)
	require.NoError(t, err)
	assert.Nil(t, res.Blame)
	assert.Equal(t, int32(99), res.Value)
}
