// Package expr implements the recursive-descent expression evaluator
// (component E, spec.md §4.E) shared by the assembler's operand reducer
// and its pseudo-op handlers.
package expr

import (
	"github.com/oisee/casdas/pkg/asmerr"
	"github.com/oisee/casdas/pkg/symtab"
)

// Result is what evaluating one expression produced. Blame and Patch are
// both nil when the expression resolved fully; otherwise Patch is a
// ready-to-file deferred fix-up (still missing Width and Addr, which the
// caller fills in once it knows the instruction's layout) blamed on the
// first undefined symbol encountered.
type Result struct {
	Value    int32
	Consumed int
	Blame    *symtab.Symbol
	Patch    *symtab.Patch
}

// state walks a token slice left to right. It never mutates toks; Consumed
// reports how many tokens were used so the caller can advance its own
// cursor.
type state struct {
	toks      []symtab.Token
	pos       int
	errSymbol *symtab.Symbol
}

func (s *state) cur() symtab.Token {
	if s.pos >= len(s.toks) {
		return symtab.Token{Kind: symtab.Bad}
	}
	return s.toks[s.pos]
}

func (s *state) isOp(code symtab.Code) bool {
	t := s.cur()
	return t.Kind == symtab.Op && t.Code == code
}

// Eval evaluates the expression starting at the front of toks, per
// spec.md §4.E's four-level precedence table. Arithmetic is 32-bit
// two's-complement throughout.
func Eval(toks []symtab.Token) (Result, error) {
	s := &state{toks: toks}
	value, err := s.exp0()
	if err != nil {
		return Result{}, err
	}
	res := Result{Value: value, Consumed: s.pos}
	if s.errSymbol != nil {
		dup := make([]symtab.Token, s.pos, s.pos+1)
		copy(dup, toks[:s.pos])
		dup = append(dup, symtab.Token{Kind: symtab.Bad})
		res.Blame = s.errSymbol
		res.Patch = &symtab.Patch{Width: symtab.WidthUnknown, Expr: dup}
	}
	return res, nil
}

// exp0: + - | ^ >> <<, left associative.
func (s *state) exp0() (int32, error) {
	value, err := s.exp1()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case s.isOp('+'):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value += rhs
		case s.isOp('-'):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value -= rhs
		case s.isOp('|'):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value |= rhs
		case s.isOp('^'):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value ^= rhs
		case s.isOp(symtab.OpShiftRight):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value >>= uint32(rhs)
		case s.isOp(symtab.OpShiftLeft):
			s.pos++
			rhs, err := s.exp1()
			if err != nil {
				return 0, err
			}
			value <<= uint32(rhs)
		default:
			return value, nil
		}
	}
}

// exp1: * / % &, left associative.
func (s *state) exp1() (int32, error) {
	value, err := s.exp2()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case s.isOp('*'):
			s.pos++
			rhs, err := s.exp2()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case s.isOp('/'):
			s.pos++
			rhs, err := s.exp2()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, asmerr.New(asmerr.Semantic, "division by zero")
			}
			value /= rhs
		case s.isOp('%'):
			s.pos++
			rhs, err := s.exp2()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, asmerr.New(asmerr.Semantic, "division by zero")
			}
			value %= rhs
		case s.isOp('&'):
			s.pos++
			rhs, err := s.exp2()
			if err != nil {
				return 0, err
			}
			value &= rhs
		default:
			return value, nil
		}
	}
}

// exp2: unary + - !, prefix.
func (s *state) exp2() (int32, error) {
	neg, not := false, false
	switch {
	case s.isOp('-'):
		s.pos++
		neg = true
	case s.isOp('+'):
		s.pos++
	case s.isOp('!'):
		s.pos++
		not = true
	}
	value, err := s.exp3()
	if err != nil {
		return 0, err
	}
	if neg {
		value = -value
	}
	if not {
		if value == 0 {
			value = 1
		} else {
			value = 0
		}
	}
	return value, nil
}

// exp3: numeric literal, symbol, $, or a parenthesized sub-expression.
func (s *state) exp3() (int32, error) {
	tok := s.cur()
	var value int32
	switch tok.Kind {
	case symtab.Num:
		value = tok.Num
		s.pos++
	case symtab.Sym:
		sym := tok.Sym
		value = sym.Value
		if !sym.Defined && s.errSymbol == nil {
			s.errSymbol = sym
		}
		s.pos++
	case symtab.Op:
		if tok.Code != '(' {
			return 0, asmerr.New(asmerr.Semantic, "illegal symbol in a formula")
		}
		s.pos++
		v, err := s.exp0()
		if err != nil {
			return 0, err
		}
		if !s.isOp(')') {
			return 0, asmerr.New(asmerr.Semantic, "closing bracket is missing")
		}
		s.pos++
		value = v
	default:
		return 0, asmerr.New(asmerr.Semantic, "illegal symbol in a formula")
	}
	return value, nil
}
