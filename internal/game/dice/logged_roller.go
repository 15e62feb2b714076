package dice

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Roller rolls formulas from a Source and records each roll at debug level:
// every die thrown, the dice kept after kh/kl selection, and the total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller returns a Roller drawing from src and logging to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the audit trail.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	result, err := Roll(expr, r.src)
	if err != nil {
		return RollResult{}, err
	}
	dropped := 0
	for _, d := range result.Rolls {
		dropped += d.Dropped()
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Array("terms", dieRolls(result.Rolls)),
		zap.Ints("rolled", result.Rolled()),
		zap.Ints("kept", result.Dice()),
		zap.Int("dropped", dropped),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses expr and rolls it.
//
// Postcondition: Returns a RollResult or a parse error; parse errors are not logged.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e)
}

type dieRolls []DieRoll

func (ds dieRolls) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, d := range ds {
		if err := enc.AppendObject(d); err != nil {
			return err
		}
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (d DieRoll) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("sign", d.Sign)
	enc.AddInt("sides", d.Sides)
	if err := enc.AddArray("rolled", ints(d.Rolled)); err != nil {
		return err
	}
	if err := enc.AddArray("kept", ints(d.Kept)); err != nil {
		return err
	}
	enc.AddInt("dropped", d.Dropped())
	enc.AddInt("sum", d.Sum())
	return nil
}

type ints []int

func (is ints) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range is {
		enc.AppendInt(v)
	}
	return nil
}
