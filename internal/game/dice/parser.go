package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser limits. Formulas beyond these are rejected rather than rolled.
const (
	MaxDiceCount = 1000
	MaxDieSides  = 1000
)

// Term is one signed component of a formula: either a dice term (Count > 0)
// or an integer constant (Count == 0).
type Term struct {
	Sign     int  // +1 or -1
	Count    int  // number of dice; 0 for a constant term
	Sides    int  // faces per die
	Keep     int  // if > 0, keep only this many dice
	Lowest   bool // keep the lowest dice instead of the highest
	Constant int  // value of a constant term
}

// IsDice reports whether t is a dice term.
func (t Term) IsDice() bool { return t.Count > 0 }

// Expression represents a parsed dice formula ready to be rolled.
//
// Invariant: len(Terms) >= 1 after a successful Parse.
type Expression struct {
	Raw   string // original input string
	Terms []Term // terms in formula order
}

// Parse parses a dice formula into an Expression.
// Supported terms, joined by '+' or '-': "d20", "2d6", "4d6kh3", "2d20kl1", "3".
// Whitespace is ignored and letters are case-insensitive.
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns an Expression with at least one term or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := expr
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	var terms []Term
	sign := 1
	start := 0
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			sign = -1
		}
		start = 1
	}
	for i := start; i <= len(s); i++ {
		if i < len(s) && s[i] != '+' && s[i] != '-' {
			continue
		}
		part := s[start:i]
		if part == "" {
			return Expression{}, fmt.Errorf("dice: empty term in %q", raw)
		}
		t, err := parseTerm(part, raw)
		if err != nil {
			return Expression{}, err
		}
		t.Sign = sign
		terms = append(terms, t)
		if i < len(s) {
			sign = 1
			if s[i] == '-' {
				sign = -1
			}
		}
		start = i + 1
	}

	return Expression{Raw: raw, Terms: terms}, nil
}

func parseTerm(part, raw string) (Term, error) {
	dIdx := strings.IndexByte(part, 'd')
	if dIdx < 0 {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Term{}, fmt.Errorf("dice: invalid constant %q in %q: %w", part, raw, err)
		}
		return Term{Constant: n}, nil
	}

	// Count defaults to 1 when omitted ("d20").
	count := 1
	if countStr := part[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Term{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count < 1 || count > MaxDiceCount {
			return Term{}, fmt.Errorf("dice: invalid die count in %q: must be 1-%d", raw, MaxDiceCount)
		}
	}

	rest := part[dIdx+1:]
	keep := 0
	lowest := false
	if kIdx := strings.IndexByte(rest, 'k'); kIdx >= 0 {
		mode := rest[kIdx+1:]
		rest = rest[:kIdx]
		var keepStr string
		switch {
		case strings.HasPrefix(mode, "h"):
			keepStr = mode[1:]
		case strings.HasPrefix(mode, "l"):
			keepStr = mode[1:]
			lowest = true
		default:
			return Term{}, fmt.Errorf("dice: keep modifier must be kh or kl in %q", raw)
		}
		k, err := strconv.Atoi(keepStr)
		if err != nil {
			return Term{}, fmt.Errorf("dice: invalid keep value in %q: %w", raw, err)
		}
		if k <= 0 || k >= count {
			return Term{}, fmt.Errorf("dice: keep value %d must be > 0 and < count %d in %q", k, count, raw)
		}
		keep = k
	}

	sides, err := strconv.Atoi(rest)
	if err != nil {
		return Term{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 || sides > MaxDieSides {
		return Term{}, fmt.Errorf("dice: invalid die sides in %q: must be 2-%d", raw, MaxDieSides)
	}

	return Term{Count: count, Sides: sides, Keep: keep, Lowest: lowest}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
