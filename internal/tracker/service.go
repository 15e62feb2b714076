package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
)

// Service runs the tracker actions against a host.
type Service struct {
	host   HostContext
	rolls  RollEvaluator
	tags   combat.GroupTagSource
	logger *zap.Logger
}

// NewService wires a Service.
//
// Precondition: all arguments must be non-nil.
func NewService(host HostContext, rolls RollEvaluator, tags combat.GroupTagSource, logger *zap.Logger) *Service {
	return &Service{host: host, rolls: rolls, tags: tags, logger: logger}
}

// PerformGroupInitiative rolls once per group of the active encounter and
// assigns the result to every member. Untagged combatants roll individually.
//
// Postcondition: with no active encounter, exactly one warning is shown and nil
// is returned without rolling. A roll or update error aborts the remaining
// groups and is returned; updates already written stay in place.
func (s *Service) PerformGroupInitiative(ctx context.Context) error {
	formula := FormulaSetting(s.host)

	enc, err := s.host.ActiveEncounter(ctx)
	if errors.Is(err, ErrNoActiveEncounter) {
		s.host.NotifyWarning(MsgNoCombatToRoll)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up active encounter: %w", err)
	}

	combatants, err := enc.Combatants(ctx)
	if err != nil {
		return fmt.Errorf("listing combatants of encounter %s: %w", enc.ID(), err)
	}

	groups := combat.ResolveGroups(combatants, s.tags)
	for _, g := range groups {
		total, err := s.rolls.Evaluate(ctx, formula)
		if err != nil {
			return fmt.Errorf("rolling initiative for group %q: %w", g.Key, err)
		}
		// One update per combatant, written in member order.
		for _, m := range g.Members {
			update := []combat.InitiativeUpdate{{CombatantID: m.ID, Initiative: total}}
			if err := enc.BatchUpdate(ctx, update); err != nil {
				return fmt.Errorf("updating initiative of combatant %s: %w", m.ID, err)
			}
		}
		s.logger.Debug("group initiative rolled",
			zap.String("encounter", enc.ID()),
			zap.String("group", g.Key),
			zap.Bool("shared", !g.Singleton()),
			zap.Int("members", len(g.Members)),
			zap.Float64("initiative", total),
		)
	}

	s.logger.Info("group initiative complete",
		zap.String("encounter", enc.ID()),
		zap.String("formula", formula),
		zap.Int("groups", len(groups)),
		zap.Int("combatants", len(combatants)),
	)
	return s.render(ctx, enc)
}

// PerformReverseOrder mirrors every initiative of the referenced encounter
// around its current maximum. An empty ref selects the active encounter.
//
// Postcondition: with no encounter, exactly one warning is shown and nil is
// returned. With no combatants, nothing happens. Otherwise all new values are
// written in a single BatchUpdate.
func (s *Service) PerformReverseOrder(ctx context.Context, ref EncounterRef) error {
	enc, err := s.lookup(ctx, ref)
	if errors.Is(err, ErrNoActiveEncounter) || errors.Is(err, ErrEncounterNotFound) {
		s.host.NotifyWarning(MsgNoCombatToReverse)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up encounter: %w", err)
	}

	combatants, err := enc.Combatants(ctx)
	if err != nil {
		return fmt.Errorf("listing combatants of encounter %s: %w", enc.ID(), err)
	}
	if len(combatants) == 0 {
		return nil
	}

	maxInit, updates := combat.ReverseOrder(combatants)
	if err := enc.BatchUpdate(ctx, updates); err != nil {
		return fmt.Errorf("reversing encounter %s: %w", enc.ID(), err)
	}

	s.logger.Info("turn order reversed",
		zap.String("encounter", enc.ID()),
		zap.Float64("max_initiative", maxInit),
		zap.Int("combatants", len(updates)),
	)
	return s.render(ctx, enc)
}

func (s *Service) lookup(ctx context.Context, ref EncounterRef) (Encounter, error) {
	if ref == "" {
		return s.host.ActiveEncounter(ctx)
	}
	return s.host.Encounter(ctx, ref)
}

func (s *Service) render(ctx context.Context, enc Encounter) error {
	if err := s.host.RenderTracker(ctx, enc); err != nil {
		return fmt.Errorf("rendering encounter %s: %w", enc.ID(), err)
	}
	return nil
}
