package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReturnsSameEntry(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("FOO")
	b := tab.Intern("FOO")
	assert.Same(t, a, b)
}

func TestInternDistinctNames(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("FOO")
	b := tab.Intern("BAR")
	assert.NotSame(t, a, b)
}

func TestDefineRejectsDuplicate(t *testing.T) {
	tab := NewTable()
	sym := tab.Intern("LABEL")
	require.NoError(t, tab.Define(sym, 0x100))
	err := tab.Define(sym, 0x200)
	require.Error(t, err)
}

func TestDrainOrderAndTransfer(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("A")
	b := tab.Intern("B")

	p1 := &Patch{Width: WidthOneByte, Addr: 1}
	p2 := &Patch{Width: WidthOneByte, Addr: 2}
	tab.AddPatch(a, p1)
	tab.AddPatch(a, p2)

	var seen []*Patch
	var written []uint16
	err := tab.Drain(a, func(p *Patch) (int32, bool, *Symbol) {
		seen = append(seen, p)
		if p == p1 {
			return 0, false, b // transferred to b, still unresolved
		}
		return 42, true, nil
	}, func(p *Patch, value int32) error {
		written = append(written, p.Addr)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []*Patch{p1, p2}, seen)
	assert.Equal(t, []uint16{2}, written)
	assert.Empty(t, a.Patches)
	assert.Equal(t, []*Patch{p1}, b.Patches)
}

func TestUndefinedListsOnlyUnresolvedUserSymbols(t *testing.T) {
	tab := NewTable()
	tab.InternReserved("LD", ClassLd, 0)
	unresolved := tab.Intern("TARGET")
	tab.AddPatch(unresolved, &Patch{})
	resolved := tab.Intern("DONE")
	require.NoError(t, tab.Define(resolved, 1))

	undef := tab.Undefined()
	require.Len(t, undef, 1)
	assert.Equal(t, "TARGET", undef[0].Name)
}
