// Command z80dis disassembles a Z80 memory image back into mnemonics
// (spec.md §6's disassembler CLI).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oisee/casdas/pkg/disasm"
	"github.com/oisee/casdas/pkg/format"
	"github.com/oisee/casdas/pkg/image"
)

// nmiVector is the Z80 non-maskable-interrupt entry point, one of the
// reachability scan's optional entry points alongside the eight RST
// vectors (spec.md §4.H).
const nmiVector = 0x66

func main() {
	var (
		fillHex   string
		orgHex    string
		startHex  string
		parseFlow bool
		parseRst  bool
		verbosity int
		hexDump   bool
	)

	rootCmd := &cobra.Command{
		Use:   "z80dis <infile> [outfile]",
		Short: "Z80 disassembler — memory image to mnemonics",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fill, err := parseHexByte(fillHex, 0x00)
			if err != nil {
				return fmt.Errorf("-f: %w", err)
			}
			org, err := parseHexWord(orgHex, 0)
			if err != nil {
				return fmt.Errorf("-o: %w", err)
			}
			var start uint16
			startSet := startHex != ""
			if startSet {
				start, err = parseHexWord(startHex, 0)
				if err != nil {
					return fmt.Errorf("-s: %w", err)
				}
			}
			outfile := ""
			if len(args) > 1 {
				outfile = args[1]
			}
			return run(args[0], outfile, fill, org, start, startSet, parseFlow, parseRst, verbosity, hexDump)
		},
	}

	rootCmd.Flags().StringVarP(&fillHex, "fill", "f", "00", "fill byte for unused RAM (hex)")
	rootCmd.Flags().StringVarP(&orgHex, "org", "o", "0000", "base address for raw binary input (hex)")
	rootCmd.Flags().StringVarP(&startHex, "start", "s", "", "first address to emit (hex, defaults to the loaded range's low water mark)")
	rootCmd.Flags().BoolVarP(&parseFlow, "parse", "p", false, "enable reachability analysis")
	rootCmd.Flags().BoolVarP(&parseRst, "rst", "r", false, "also trace the RST vectors and the NMI vector")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase verbosity")
	rootCmd.Flags().BoolVarP(&hexDump, "hexdump", "x", false, "prefix each line with its raw bytes")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(infile, outfile string, fill byte, org, start uint16, startSet, parseFlow, parseRst bool, verbosity int, hexDump bool) error {
	raw, err := os.ReadFile(infile)
	if err != nil {
		return err
	}
	img := image.New(fill)
	if err := format.Load(img, infile, raw, org); err != nil {
		return err
	}
	if img.Empty() {
		return fmt.Errorf("no data loaded from %q", infile)
	}

	lo, hi := img.LoPC(), img.HiPC()
	if startSet {
		lo = start
	}

	var scan *disasm.Scan
	if parseFlow {
		scan = disasm.NewScan(img)
		scan.Trace(lo)
		if parseRst {
			for v := uint16(0); v <= 0x38; v += 8 {
				scan.Trace(v)
			}
			scan.Trace(nmiVector)
		}
		for _, d := range scan.Diags {
			fmt.Fprintln(os.Stderr, d)
		}
	}

	l := &disasm.Lister{Img: img, Scan: scan, Verbosity: verbosity, HexDump: hexDump}

	var out *os.File
	if outfile == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(outfile)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	return l.WriteListing(out, lo, hi)
}

func parseHexByte(s string, def byte) (byte, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func parseHexWord(s string, def uint16) (uint16, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
