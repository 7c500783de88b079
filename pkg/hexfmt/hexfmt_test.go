package hexfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderParsesDataRecord(t *testing.T) {
	var got []byte
	var gotAddr uint32
	var gotOK bool
	r := NewReader(func(typ RecordType, addr uint32, data []byte, checksumOK bool) {
		if typ == Data {
			got = append([]byte(nil), data...)
			gotAddr = addr
			gotOK = checksumOK
		}
	})
	r.FeedAll([]byte(":0300100011223387\r\n"))
	require.Equal(t, []byte{0x11, 0x22, 0x33}, got)
	assert.Equal(t, uint32(0x0010), gotAddr)
	assert.True(t, gotOK)
}

func TestReaderFlagsBadChecksum(t *testing.T) {
	var ok bool
	r := NewReader(func(typ RecordType, addr uint32, data []byte, checksumOK bool) {
		if typ == Data {
			ok = checksumOK
		}
	})
	r.FeedAll([]byte(":03001000112233FF\n"))
	assert.False(t, ok)
}

func TestReaderExtendedLinearPromotesHighBits(t *testing.T) {
	var addrs []uint32
	r := NewReader(func(typ RecordType, addr uint32, data []byte, checksumOK bool) {
		if typ == Data {
			addrs = append(addrs, addr)
		}
	})
	r.FeedAll([]byte(":020000040001F9\n"))
	r.FeedAll([]byte(":01000000AAFE\n"))
	require.Len(t, addrs, 1)
	assert.Equal(t, uint32(0x00010000), addrs[0])
}

func TestReaderResyncsOnColon(t *testing.T) {
	var count int
	r := NewReader(func(typ RecordType, addr uint32, data []byte, checksumOK bool) {
		count++
	})
	// A garbled partial record followed by a clean one.
	r.FeedAll([]byte(":0300XX\n:00000001FF\n"))
	assert.Equal(t, 1, count)
}

func TestWriterRoundTripsThroughReader(t *testing.T) {
	w := NewWriter(4)
	w.PutAtAddress(0x10)
	w.PutByte(0xDE)
	w.PutByte(0xAD)
	w.PutByte(0xBE)
	w.PutByte(0xEF)
	lines := w.End()
	require.True(t, len(lines) >= 2)

	var data []byte
	r := NewReader(func(typ RecordType, addr uint32, payload []byte, checksumOK bool) {
		if typ == Data {
			require.True(t, checksumOK)
			data = append(data, payload...)
		}
	})
	for _, line := range lines {
		r.FeedAll(line)
		r.Feed('\n')
	}
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
}

func TestWriterEmitsExtendedLinearOnBankCross(t *testing.T) {
	w := NewWriter(0)
	w.PutAtAddress(0x0001FFFE)
	w.PutByte(1)
	w.PutByte(2)
	w.PutByte(3)
	w.PutByte(4)
	lines := w.End()

	var sawExtended bool
	r := NewReader(func(typ RecordType, addr uint32, payload []byte, checksumOK bool) {
		if typ == ExtendedLinear {
			sawExtended = true
		}
	})
	for _, line := range lines {
		r.FeedAll(line)
		r.Feed('\n')
	}
	assert.True(t, sawExtended)
}

func TestWriterEndRecordIsCanonical(t *testing.T) {
	w := NewWriter(0)
	lines := w.End()
	assert.Equal(t, []byte(":00000001FF"), lines[len(lines)-1])
}
