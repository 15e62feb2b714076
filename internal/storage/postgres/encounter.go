package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// EncounterRepository persists encounters and their combatants.
type EncounterRepository struct {
	db    *pgxpool.Pool
	owner *Pool
}

var _ storage.Store = (*EncounterRepository)(nil)

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
// Close on the repository closes the pool.
//
// Precondition: pool must be open and migrated.
func NewEncounterRepository(pool *Pool) *EncounterRepository {
	return &EncounterRepository{db: pool.DB(), owner: pool}
}

// Close releases the pool.
func (r *EncounterRepository) Close() error {
	r.owner.Close()
	return nil
}

// Save implements storage.Store. The encounter and its combatants are
// replaced in one transaction.
func (r *EncounterRepository) Save(ctx context.Context, enc combat.Encounter) error {
	if err := enc.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if enc.Active {
			// The partial unique index allows a single active row.
			if _, err := tx.Exec(ctx,
				`UPDATE encounters SET active = FALSE, updated_at = NOW() WHERE active AND id <> $1`,
				enc.ID,
			); err != nil {
				return fmt.Errorf("deactivating encounters: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO encounters (id, name, active, round)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, active = EXCLUDED.active, round = EXCLUDED.round, updated_at = NOW()`,
			enc.ID, enc.Name, enc.Active, enc.Round,
		); err != nil {
			return fmt.Errorf("upserting encounter %s: %w", enc.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM combatants WHERE encounter_id = $1`, enc.ID); err != nil {
			return fmt.Errorf("clearing combatants of %s: %w", enc.ID, err)
		}

		b := &pgx.Batch{}
		for i, c := range enc.Combatants {
			var actorID *string
			if c.Actor != nil && c.Actor.ID != "" {
				b.Queue(`
					INSERT INTO actors (id, name, flags) VALUES ($1, $2, $3)
					ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, flags = EXCLUDED.flags`,
					c.Actor.ID, c.Actor.Name, nonNilFlags(c.Actor.Flags),
				)
				actorID = &c.Actor.ID
			}
			var initiative *float64
			if v, ok := c.InitiativeValue(); ok {
				initiative = &v
			}
			b.Queue(`
				INSERT INTO combatants (id, encounter_id, position, name, actor_id, initiative, hidden, defeated, flags)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				c.ID, enc.ID, i, c.Name, actorID, initiative, c.Hidden, c.Defeated, nonNilFlags(c.Flags),
			)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("inserting combatants of %s: %w", enc.ID, err)
		}
		return nil
	})
}

// Load implements storage.Store.
func (r *EncounterRepository) Load(ctx context.Context, id string) (combat.Encounter, error) {
	var enc combat.Encounter
	err := r.db.QueryRow(ctx,
		`SELECT id, name, active, round FROM encounters WHERE id = $1`, id,
	).Scan(&enc.ID, &enc.Name, &enc.Active, &enc.Round)
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Encounter{}, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	if err != nil {
		return combat.Encounter{}, fmt.Errorf("querying encounter %s: %w", id, err)
	}
	enc.Combatants, err = r.combatants(ctx, id)
	if err != nil {
		return combat.Encounter{}, err
	}
	return enc, nil
}

// List implements storage.Store.
func (r *EncounterRepository) List(ctx context.Context) ([]combat.Encounter, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, active, round FROM encounters ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	defer rows.Close()

	out := make([]combat.Encounter, 0)
	for rows.Next() {
		var enc combat.Encounter
		if err := rows.Scan(&enc.ID, &enc.Name, &enc.Active, &enc.Round); err != nil {
			return nil, fmt.Errorf("scanning encounter row: %w", err)
		}
		out = append(out, enc)
	}
	return out, rows.Err()
}

// SetActive implements storage.Store.
func (r *EncounterRepository) SetActive(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE encounters SET active = FALSE, updated_at = NOW() WHERE active AND id <> $1`, id,
		); err != nil {
			return fmt.Errorf("deactivating encounters: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE encounters SET active = TRUE, updated_at = NOW() WHERE id = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("activating encounter %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
		}
		return nil
	})
}

// Active implements storage.Store.
func (r *EncounterRepository) Active(ctx context.Context) (tracker.Encounter, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM encounters WHERE active LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tracker.ErrNoActiveEncounter
	}
	if err != nil {
		return nil, fmt.Errorf("querying active encounter: %w", err)
	}
	return &encounterHandle{repo: r, id: id}, nil
}

// Get implements storage.Store.
func (r *EncounterRepository) Get(ctx context.Context, id string) (tracker.Encounter, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM encounters WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("querying encounter %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	return &encounterHandle{repo: r, id: id}, nil
}

func (r *EncounterRepository) combatants(ctx context.Context, encounterID string) ([]*combat.Combatant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.initiative, c.hidden, c.defeated, c.flags,
		       a.id, a.name, a.flags
		FROM combatants c
		LEFT JOIN actors a ON a.id = c.actor_id
		WHERE c.encounter_id = $1
		ORDER BY c.position`,
		encounterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing combatants of %s: %w", encounterID, err)
	}
	defer rows.Close()

	out := make([]*combat.Combatant, 0)
	for rows.Next() {
		var (
			c          combat.Combatant
			actorID    *string
			actorName  *string
			actorFlags combat.Flags
		)
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Initiative, &c.Hidden, &c.Defeated, &c.Flags,
			&actorID, &actorName, &actorFlags,
		); err != nil {
			return nil, fmt.Errorf("scanning combatant row: %w", err)
		}
		if len(c.Flags) == 0 {
			c.Flags = nil
		}
		if actorID != nil {
			c.Actor = &combat.Actor{ID: *actorID, Flags: actorFlags}
			if actorName != nil {
				c.Actor.Name = *actorName
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// encounterHandle is a live view of one stored encounter.
type encounterHandle struct {
	repo *EncounterRepository
	id   string
}

func (h *encounterHandle) ID() string { return h.id }

func (h *encounterHandle) Combatants(ctx context.Context) ([]*combat.Combatant, error) {
	return h.repo.combatants(ctx, h.id)
}

// BatchUpdate writes all updates in one transaction; an unknown combatant
// rolls the whole batch back.
func (h *encounterHandle) BatchUpdate(ctx context.Context, updates []combat.InitiativeUpdate) error {
	return pgx.BeginFunc(ctx, h.repo.db, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, u := range updates {
			b.Queue(
				`UPDATE combatants SET initiative = $1 WHERE id = $2 AND encounter_id = $3`,
				u.Initiative, u.CombatantID, h.id,
			)
		}
		br := tx.SendBatch(ctx, b)
		for _, u := range updates {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("updating combatant %s: %w", u.CombatantID, err)
			}
			if tag.RowsAffected() == 0 {
				_ = br.Close()
				return fmt.Errorf("encounter %s: %w: %s", h.id, storage.ErrCombatantNotFound, u.CombatantID)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("closing update batch: %w", err)
		}
		_, err := tx.Exec(ctx, `UPDATE encounters SET updated_at = NOW() WHERE id = $1`, h.id)
		return err
	})
}

func nonNilFlags(f combat.Flags) combat.Flags {
	if f == nil {
		return combat.Flags{}
	}
	return f
}
