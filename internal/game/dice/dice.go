// Package dice provides the randomness abstraction, formula parser, and
// roll-result types used to evaluate initiative formulas.
package dice

import (
	"fmt"
	"strings"
)

// DieRoll records one dice term of a formula after it was rolled.
//
// Invariant: len(Kept) <= len(Rolled); Sign is +1 or -1.
type DieRoll struct {
	Sign   int   // +1 or -1
	Sides  int   // faces per die
	Rolled []int // every die thrown, in throw order
	Kept   []int // dice that count toward the total
}

// Sum returns the signed sum of the kept dice.
func (d DieRoll) Sum() int {
	total := 0
	for _, v := range d.Kept {
		total += v
	}
	return d.Sign * total
}

// Dropped returns how many thrown dice a keep modifier discarded.
func (d DieRoll) Dropped() int {
	return len(d.Rolled) - len(d.Kept)
}

// RollResult holds the full audit trail for a single formula evaluation.
//
// Postcondition: Total() == sum(Rolls[i].Sum()) + Modifier.
type RollResult struct {
	Expression string    // original formula string, e.g. "2d20kh1+3"
	Rolls      []DieRoll // one entry per dice term, in formula order
	Modifier   int       // sum of all constant terms (may be negative)
}

// Total returns the sum of all kept dice plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Rolls {
		total += d.Sum()
	}
	return total
}

// Dice returns every kept die value in formula order, unsigned.
func (r RollResult) Dice() []int {
	var out []int
	for _, d := range r.Rolls {
		out = append(out, d.Kept...)
	}
	return out
}

// Rolled returns every thrown die in formula order, kept or not.
func (r RollResult) Rolled() []int {
	var out []int
	for _, d := range r.Rolls {
		out = append(out, d.Rolled...)
	}
	return out
}

// String returns a human-readable audit string in the format:
//
//	"1d20+1d4-1 → [12] +[3] -1 = 14"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	var b strings.Builder
	for i, d := range r.Rolls {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case d.Sign < 0:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%v", d.Kept)
	}
	if r.Modifier != 0 || len(r.Rolls) == 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%+d", r.Modifier)
	}
	return fmt.Sprintf("%s → %s = %d", r.Expression, b.String(), r.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
