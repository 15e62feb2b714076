package tracker

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/combat-tracker/internal/game/dice"
)

// DiceEvaluator adapts a logged dice.Roller to RollEvaluator.
type DiceEvaluator struct {
	roller *dice.Roller
}

// NewDiceEvaluator returns a RollEvaluator backed by roller.
//
// Precondition: roller must be non-nil.
func NewDiceEvaluator(roller *dice.Roller) *DiceEvaluator {
	return &DiceEvaluator{roller: roller}
}

// Evaluate parses and rolls formula.
//
// Postcondition: returns the roll total, or an error if ctx is done or the formula is invalid.
func (e *DiceEvaluator) Evaluate(ctx context.Context, formula string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := e.roller.RollExpr(formula)
	if err != nil {
		return 0, fmt.Errorf("evaluating %q: %w", formula, err)
	}
	return float64(res.Total()), nil
}
