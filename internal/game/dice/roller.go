package dice

import "sort"

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Rolls) == number of dice terms in expr;
// result.Total() == sum of signed kept dice + result.Modifier.
func Roll(expr Expression, src Source) (RollResult, error) {
	result := RollResult{Expression: expr.Raw}
	for _, t := range expr.Terms {
		if !t.IsDice() {
			result.Modifier += t.Sign * t.Constant
			continue
		}
		rolled := make([]int, t.Count)
		for i := range rolled {
			rolled[i] = src.Intn(t.Sides) + 1
		}
		result.Rolls = append(result.Rolls, DieRoll{
			Sign:   t.Sign,
			Sides:  t.Sides,
			Rolled: rolled,
			Kept:   keep(rolled, t.Keep, t.Lowest),
		})
	}
	return result, nil
}

func keep(rolled []int, n int, lowest bool) []int {
	if n <= 0 {
		return rolled
	}
	sorted := make([]int, len(rolled))
	copy(sorted, rolled)
	if lowest {
		sort.Ints(sorted)
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	}
	return sorted[:n]
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a RollResult or a parse error.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}
