package symtab

import "github.com/oisee/casdas/pkg/asmerr"

// PatchWidth is how a deferred fix-up should be written into the image once
// its symbol resolves, per spec.md §3.
type PatchWidth int

const (
	WidthUnknown PatchWidth = iota // not yet learned at emission time
	WidthOneByte
	WidthTwoByteLoHi
	WidthPCRelByte
)

// Patch is a deferred write into the image, created when an expression
// could not be resolved and completed once a referenced symbol becomes
// defined (spec.md's Patch / "Back-patch" glossary entry).
type Patch struct {
	Width PatchWidth
	Addr  uint16
	Expr  []Token // owned copy of the token sub-sequence, Bad-terminated
}

// Symbol is one interned entry, case-folded by name, shared by reserved
// words (set up once at startup) and user symbols (created lazily by the
// lexer), per spec.md §4.C.
type Symbol struct {
	Name      string
	Hash      uint16
	Kind      Code // 0 = user symbol; otherwise a reserved-word token class
	Value     int32
	Defined   bool
	FirstSeen bool
	Patches   []*Patch

	next *Symbol // chain within its hash bucket
}

// Table is a 256-bucket chaining hash table keyed by the low byte of
// calcHash(name), matching spec.md §4.C exactly (including the rolling
// hash formula and full-hash-then-strcmp lookup).
type Table struct {
	buckets [256]*Symbol
}

// NewTable returns an empty table. Reserved words are installed separately
// by InstallReserved so callers can reuse Table for pure user-symbol
// scenarios (e.g. tests) without the full mnemonic/register set.
func NewTable() *Table {
	return &Table{}
}

// calcHash implements the rolling hash from spec.md §4.C:
// h' = (h<<4)+c; if h'>>12 then h' ^= h'>>12.
func calcHash(name string) uint16 {
	var h uint16
	for i := 0; i < len(name); i++ {
		h = (h << 4) + uint16(name[i])
		if top := h >> 12; top != 0 {
			h ^= top
		}
	}
	return h
}

// Intern returns the existing entry for name (case-sensitive — callers are
// expected to have already case-folded identifiers) or inserts and returns
// a zeroed one. Always succeeds.
func (t *Table) Intern(name string) *Symbol {
	h := calcHash(name)
	bucket := h & 0xFF
	for s := t.buckets[bucket]; s != nil; s = s.next {
		if s.Hash == h && s.Name == name {
			return s
		}
	}
	sym := &Symbol{Name: name, Hash: h, next: t.buckets[bucket]}
	t.buckets[bucket] = sym
	return sym
}

// Lookup returns the existing entry for name, or nil if it has never been
// interned.
func (t *Table) Lookup(name string) *Symbol {
	h := calcHash(name)
	bucket := h & 0xFF
	for s := t.buckets[bucket]; s != nil; s = s.next {
		if s.Hash == h && s.Name == name {
			return s
		}
	}
	return nil
}

// InternReserved interns a reserved word (mnemonic, register, condition or
// pseudo-op) with its token class and packed encoding value. Reserved
// entries are created once at startup and never mutated afterward.
func (t *Table) InternReserved(name string, class Code, encodingBytes uint16) *Symbol {
	sym := t.Intern(name)
	sym.Kind = class
	sym.Value = int32(encodingBytes)<<16 | int32(uint16(class))
	return sym
}

// Define sets value on sym and marks it defined. It fails if sym is
// already defined (spec.md: duplicate symbol definition is fatal, per the
// spec's resolution of an Open Question in §9).
func (t *Table) Define(sym *Symbol, value int32) error {
	if sym.Defined {
		return asmerr.New(asmerr.Semantic, "symbol %q already defined", sym.Name)
	}
	sym.Value = value
	sym.Defined = true
	return nil
}

// AddPatch appends patch to sym's pending list without checking ordering,
// per spec.md §4.C.
func (t *Table) AddPatch(sym *Symbol, p *Patch) {
	sym.Patches = append(sym.Patches, p)
}

// DrainFunc re-evaluates one patch's expression once its symbol is known,
// returning the resolved value and whether resolution succeeded. If it
// returns ok == false, the still-unresolved new blamed symbol is passed
// back in newBlame so the caller can transfer the patch.
type DrainFunc func(p *Patch) (value int32, ok bool, newBlame *Symbol)

// Drain empties sym.Patches exactly once, in registration order (spec.md's
// invariant: "patches are drained in the order they were registered
// against a given symbol"). Each patch is re-evaluated via eval; if still
// unresolved, ownership transfers onto newBlame's list (an index move, no
// allocation churn, per spec.md §9's re-architecture note). Otherwise
// write is invoked with the resolved value so the caller can commit it to
// the image.
func (t *Table) Drain(sym *Symbol, eval DrainFunc, write func(p *Patch, value int32) error) error {
	pending := sym.Patches
	sym.Patches = nil
	for _, p := range pending {
		value, ok, newBlame := eval(p)
		if !ok {
			t.AddPatch(newBlame, p)
			continue
		}
		if err := write(p, value); err != nil {
			return err
		}
	}
	return nil
}

// Undefined returns every interned symbol with Kind == 0 (a user symbol,
// not a reserved word) whose Patches list is still non-empty — spec.md
// §4.F's end-of-assembly undefined-symbol report.
func (t *Table) Undefined() []*Symbol {
	var out []*Symbol
	for _, bucket := range t.buckets {
		for s := bucket; s != nil; s = s.next {
			if s.Kind == 0 && len(s.Patches) > 0 {
				out = append(out, s)
			}
		}
	}
	return out
}

// UserSymbols returns every interned user symbol (Kind == 0), defined or
// not, for cross-reference listing (spec.md §6).
func (t *Table) UserSymbols() []*Symbol {
	var out []*Symbol
	for _, bucket := range t.buckets {
		for s := bucket; s != nil; s = s.next {
			if s.Kind == 0 {
				out = append(out, s)
			}
		}
	}
	return out
}
