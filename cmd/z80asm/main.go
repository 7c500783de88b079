// Command z80asm assembles Z80 source into a binary image (spec.md §6's
// assembler CLI).
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/casdas/pkg/assembler"
	"github.com/oisee/casdas/pkg/format"
	"github.com/oisee/casdas/pkg/numfmt"
)

func main() {
	var (
		writeCom  bool
		fillHex   string
		listing   bool
		noOutput  bool
		orgHex    string
		verbosity int
	)

	rootCmd := &cobra.Command{
		Use:   "z80asm <infile>",
		Short: "Z80 assembler — source to memory image",
		Long: "Z80 assembler — source to memory image.\n\n" +
			"RST accepts a vector 00H,08H,...,38H or an index 0..7. The bare decimal\n" +
			"values 10, 18, 20, 28, 30 and 38 are read as the vectors 10H..38H\n" +
			"(RST 10 assembles as RST 10H).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fill, err := parseHexByte(fillHex, 0x00)
			if err != nil {
				return fmt.Errorf("-f: %w", err)
			}
			org, err := parseHexWord(orgHex, 0)
			if err != nil {
				return fmt.Errorf("-o: %w", err)
			}
			return run(args[0], fill, org, writeCom, listing, noOutput, verbosity)
		},
	}

	rootCmd.Flags().BoolVarP(&writeCom, "com", "c", false, "write binary as CP/M COM (forces write-base 0100H)")
	rootCmd.Flags().StringVarP(&fillHex, "fill", "f", "00", "fill byte for unused RAM (hex)")
	rootCmd.Flags().BoolVarP(&listing, "listing", "l", false, "emit a source-interleaved listing to stdout")
	rootCmd.Flags().BoolVarP(&noOutput, "no-output", "n", false, "suppress output files")
	rootCmd.Flags().StringVarP(&orgHex, "org", "o", "0000", "load base address (hex)")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase verbosity")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(infile string, fill byte, org uint16, writeCom, listing, noOutput bool, verbosity int) error {
	if filepath.Ext(infile) != ".asm" {
		return fmt.Errorf("input file must have a .asm extension, got %q", infile)
	}
	f, err := os.Open(infile)
	if err != nil {
		return err
	}
	defer f.Close()

	a := assembler.New(os.Stdout)
	a.SetFill(fill)
	a.PC = org
	a.Listing = listing
	a.Verbosity = verbosity

	scanner := bufio.NewScanner(f)
	for scanner.Scan() && !a.Ended {
		line := scanner.Text()
		startPC := a.PC
		if err := a.AssembleLine(line); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return fmt.Errorf("assembly failed")
		}
		if listing {
			printListingLine(a, startPC, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if report := a.UndefinedReport(); report != "" {
		fmt.Fprint(os.Stderr, report)
	}
	printCrossReference(a)

	if noOutput {
		return nil
	}
	stem := strings.TrimSuffix(infile, filepath.Ext(infile))
	ext := ".bin"
	if writeCom {
		ext = ".com"
	}
	// spec.md §6: every run writes the binary (or COM) plus the .z80
	// container and an Intel HEX file derived from the same image.
	lo, hi := a.Image.LoPC(), a.Image.HiPC()
	for _, name := range []string{stem + ext, stem + ".z80", stem + ".hex"} {
		raw, err := format.Save(a.Image, name, lo, hi)
		if err != nil {
			return err
		}
		if err := os.WriteFile(name, raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// maxListingBytes bounds the -l byte column: ORG/DS move the PC without
// writing any bytes, sometimes across the whole 64K image, so a PC delta
// past this is assumed to be a PC-only pseudo-op rather than emitted data.
const maxListingBytes = 64

// printListingLine renders one -l listing line: the load address, the
// bytes AssembleLine just emitted for it, and the original source text,
// per spec.md §6's "AAAA   BB BB BB BB   <source>" format.
func printListingLine(a *assembler.Assembler, startPC uint16, line string) {
	dump := ""
	if n := a.PC - startPC; n > 0 && n <= maxListingBytes {
		for pc := startPC; pc != a.PC; pc++ {
			dump += numfmt.PlainHex8(a.Image.Read(pc)) + " "
		}
	}
	fmt.Printf("%s  %-24s%s\n", numfmt.PlainHex16(startPC), dump, line)
}

// printCrossReference prints "value  name" for every defined non-reserved
// symbol, sorted by name; undefined symbols are left out, supplementing spec.md §6's "symbol cross-reference
// follows the listing".
func printCrossReference(a *assembler.Assembler) {
	syms := a.Table.UserSymbols()
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	for _, s := range syms {
		if !s.Defined {
			continue
		}
		fmt.Printf("%s  %s\n", numfmt.PlainHex16(uint16(s.Value)), s.Name)
	}
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
