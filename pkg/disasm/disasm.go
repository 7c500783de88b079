package disasm

import (
	"fmt"
	"io"

	"github.com/oisee/casdas/pkg/image"
	"github.com/oisee/casdas/pkg/numfmt"
)

// Line is one listing line: either a disassembled instruction or a
// collapsed run of DEFB data bytes.
type Line struct {
	Addr  uint16
	Bytes []byte
	Text  string // mnemonic, or "DEFB $xx,$xx,..." for a data run
	Label bool   // true if Addr carries the reachability scan's label flag
}

// Lister renders a listing over img, honoring an optional reachability
// Scan (nil disables labels/DEFB collapsing and simply disassembles every
// byte as an instruction, matching spec.md §6's default "-p off" mode).
type Lister struct {
	Img       *image.Image
	Scan      *Scan
	Verbosity int
	HexDump   bool // -x: prefix each line with its raw bytes
}

// Listing walks [lo, hi] and returns one Line per instruction or collapsed
// data run, per spec.md §4.H's "DEFB runs of up to 16 bytes" rule.
func (l *Lister) Listing(lo, hi uint16) []Line {
	var lines []Line
	labels := l.labelNames(lo, hi)
	labeler := func(addr uint16) string {
		if name, ok := labels[addr]; ok {
			return name
		}
		return "$" + numfmt.PlainHex16(addr)
	}

	addr := lo
	for {
		if l.isData(addr) {
			start := addr
			var data []byte
			for len(data) < 16 && addr <= hi && l.isData(addr) {
				data = append(data, l.Img.Read(addr))
				addr++
			}
			lines = append(lines, Line{
				Addr:  start,
				Bytes: data,
				Text:  formatDefb(data),
				Label: l.hasLabel(start),
			})
		} else {
			text, n := Format(addr, l.Img, labeler)
			if l.Verbosity > 1 {
				text += traceComment(l.Img.Read(addr))
			}
			bs := make([]byte, n)
			for i := 0; i < n; i++ {
				bs[i] = l.Img.Read(addr + uint16(i))
			}
			start := addr
			lines = append(lines, Line{Addr: start, Bytes: bs, Text: text, Label: l.hasLabel(start)})
			addr += uint16(n)
		}
		if addr > hi || addr < lo {
			break
		}
	}
	return lines
}

func (l *Lister) isData(addr uint16) bool {
	if l.Scan == nil {
		return false
	}
	return l.Scan.Mode(addr).State() == Data || l.Scan.Mode(addr).State() == Empty
}

func (l *Lister) hasLabel(addr uint16) bool {
	return l.Scan != nil && l.Scan.Mode(addr).HasLabel()
}

// labelNames assigns "L<hex>" names to every labeled address in range, for
// use by the mnemonic formatter's operand text (spec.md §4.H).
func (l *Lister) labelNames(lo, hi uint16) map[uint16]string {
	names := map[uint16]string{}
	if l.Scan == nil {
		return names
	}
	addr := lo
	for {
		if l.Scan.Mode(addr).HasLabel() {
			names[addr] = "L" + numfmt.PlainHex16(addr)
		}
		if addr == hi {
			break
		}
		addr++
	}
	return names
}

func formatDefb(data []byte) string {
	s := "DEFB    "
	for i, b := range data {
		if i > 0 {
			s += ","
		}
		s += "$" + numfmt.PlainHex8(b)
	}
	return s
}

// traceComment renders the (X,Y,Z) bit-field debug trace DasZ80 emits at
// verbosity > 1 (Loudness > 1 in Das.cpp's ShowOp), reimplemented as a pure
// formatting helper rather than a side-effecting global.
func traceComment(op byte) string {
	x, y, z := op>>6&3, op>>3&7, op&7
	return fmt.Sprintf("  ; %02X: %d.%d.%d", op, x, y, z)
}

// WriteListing renders Listing(lo, hi) to w, one line per instruction or
// data run, with an optional leading hex dump of the instruction's raw
// bytes (the -x flag) and an "L<hex>:" label column when the address
// carries the reachability scan's label flag.
func (l *Lister) WriteListing(w io.Writer, lo, hi uint16) error {
	for _, ln := range l.Listing(lo, hi) {
		label := ""
		if ln.Label {
			label = "L" + numfmt.PlainHex16(ln.Addr) + ":"
		}
		addrCol := numfmt.PlainHex16(ln.Addr)
		if l.HexDump {
			dump := ""
			for _, b := range ln.Bytes {
				dump += numfmt.PlainHex8(b) + " "
			}
			if _, err := fmt.Fprintf(w, "%s  %-12s%-7s%s\n", addrCol, dump, label, ln.Text); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s  %-7s%s\n", addrCol, label, ln.Text); err != nil {
			return err
		}
	}
	return nil
}
