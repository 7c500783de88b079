package assembler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembleAll(t *testing.T, a *Assembler, lines []string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, a.AssembleLine(line), "line %q", line)
	}
}

func TestForwardReferenceBackPatch(t *testing.T) {
	a := New(&bytes.Buffer{})
	assembleAll(t, a, []string{
		"ORG 0100H",
		"JP target",
		"NOP",
		"target: RET",
	})
	assert.Equal(t, []byte{0xC3, 0x04, 0x01, 0x00, 0xC9}, a.Image.Slice(0x100, 0x104))
	assert.Empty(t, a.Table.Undefined())
}

func TestIndexDisplacementAndUndocumentedHalf(t *testing.T) {
	a := New(&bytes.Buffer{})
	assembleAll(t, a, []string{
		"ORG 0",
		"LD (IX+5),7FH",
		"LD HX,A",
	})
	assert.Equal(t, []byte{0xDD, 0x36, 0x05, 0x7F, 0xDD, 0x67}, a.Image.Slice(0, 5))
}

func TestConditionalGate(t *testing.T) {
	a := New(&bytes.Buffer{})
	assembleAll(t, a, []string{
		"DEBUG EQU 0",
		"IF DEBUG",
		"NOP",
		"ELSE",
		"HALT",
		"ENDIF",
	})
	assert.Equal(t, byte(0x76), a.Image.Read(0))
	assert.Equal(t, uint16(0), a.Image.HiPC())
}

func TestFillAndDS(t *testing.T) {
	a := New(&bytes.Buffer{})
	assembleAll(t, a, []string{
		"ORG 0",
		"FILL 3,0AAH",
		"DS 2",
		"DB 01H,02H",
	})
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0x00, 0x00, 0x01, 0x02}, a.Image.Slice(0, 6))
}

func TestDuplicateLabelIsFatal(t *testing.T) {
	a := New(&bytes.Buffer{})
	require.NoError(t, a.AssembleLine("FOO: NOP"))
	err := a.AssembleLine("FOO: NOP")
	require.Error(t, err)
}

func TestEquWithTrailingTokensIsRejected(t *testing.T) {
	a := New(&bytes.Buffer{})
	err := a.AssembleLine("FOO EQU 1 2")
	require.Error(t, err)
}

func TestEndInsideOpenIfIsFatal(t *testing.T) {
	a := New(&bytes.Buffer{})
	require.NoError(t, a.AssembleLine("IF 1"))
	err := a.AssembleLine("END")
	require.Error(t, err)
}

func TestPrintWritesToDiagnosticChannel(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf)
	require.NoError(t, a.AssembleLine(`PRINT "hello"`))
	assert.Contains(t, buf.String(), "hello")
}

func TestUndefinedSymbolReportedAtEOF(t *testing.T) {
	a := New(&bytes.Buffer{})
	require.NoError(t, a.AssembleLine("JP nowhere"))
	undef := a.Table.Undefined()
	require.Len(t, undef, 1)
	assert.Equal(t, "NOWHERE", undef[0].Name)
}

func TestRelativeJumpOutOfRangeFails(t *testing.T) {
	a := New(&bytes.Buffer{})
	require.NoError(t, a.AssembleLine("ORG 0"))
	require.NoError(t, a.AssembleLine("JR toofar"))
	for i := 0; i < 200; i++ {
		require.NoError(t, a.AssembleLine("NOP"))
	}
	err := a.AssembleLine("toofar: NOP")
	require.Error(t, err)
}

func TestInOutPortInstructions(t *testing.T) {
	a := New(&bytes.Buffer{})
	assembleAll(t, a, []string{
		"ORG 0",
		"IN A,(0FEH)",
		"IN B,(C)",
		"IN (C)",
		"OUT (0FEH),A",
		"OUT (C),B",
		"OUT (C),0",
	})
	assert.Equal(t, []byte{
		0xDB, 0xFE, // IN A,(0FEH)
		0xED, 0x40, // IN B,(C)
		0xED, 0x70, // IN (C)
		0xD3, 0xFE, // OUT (0FEH),A
		0xED, 0x41, // OUT (C),B
		0xED, 0x71, // OUT (C),0
	}, a.Image.Slice(0, 11))
}

func TestRstFriendlyDecimalCoercion(t *testing.T) {
	a := New(&bytes.Buffer{})
	require.NoError(t, a.AssembleLine("ORG 0"))
	require.NoError(t, a.AssembleLine("RST 10"))
	assert.Equal(t, byte(0xD7), a.Image.Read(0)) // RST 10H = C7 + 0x10
}
