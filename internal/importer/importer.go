// Package importer loads encounter fixtures from YAML into an encounter store.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/storage"
)

// Importer orchestrates encounter import from a Source into a store.
type Importer struct {
	source    Source
	converter *Converter
	store     storage.Store
	logger    *zap.Logger
}

// New constructs an Importer.
//
// Precondition: all arguments must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, converter *Converter, store storage.Store, logger *zap.Logger) *Importer {
	return &Importer{source: source, converter: converter, store: store, logger: logger}
}

// Result summarizes one import run.
type Result struct {
	Encounters []string
	Combatants int
}

// Run loads path, converts every encounter, and saves each into the store.
// Encounters are saved in file order, so the last active one wins.
//
// Postcondition: on error, encounters saved before the failing one remain.
func (imp *Importer) Run(ctx context.Context, path string) (Result, error) {
	overall := time.Now()

	files, err := imp.source.Load(path)
	if err != nil {
		return Result{}, fmt.Errorf("loading source: %w", err)
	}

	var res Result
	for _, f := range files {
		encs, err := imp.converter.Convert(f)
		if err != nil {
			return res, fmt.Errorf("converting %s: %w", path, err)
		}
		for _, enc := range encs {
			t0 := time.Now()
			if err := imp.store.Save(ctx, enc); err != nil {
				return res, fmt.Errorf("saving encounter %q: %w", enc.ID, err)
			}
			res.Encounters = append(res.Encounters, enc.ID)
			res.Combatants += len(enc.Combatants)
			imp.logger.Info("encounter imported",
				zap.String("encounter", enc.ID),
				zap.String("name", enc.Name),
				zap.Bool("active", enc.Active),
				zap.Int("combatants", len(enc.Combatants)),
				zap.Duration("elapsed", time.Since(t0)),
			)
		}
	}

	imp.logger.Info("import complete",
		zap.Int("encounters", len(res.Encounters)),
		zap.Duration("total", time.Since(overall)),
	)
	return res, nil
}
