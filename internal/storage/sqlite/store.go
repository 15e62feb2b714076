// Package sqlite provides a single-file SQLite encounter store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

//go:embed schema.sql
var schema string

// Store persists encounters in SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the SQLite database at path and applies the schema.
//
// Precondition: path must be non-empty; its directory must exist.
// Postcondition: Returns a ready Store or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps pragmas and transactions on a single handle.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save implements storage.Store.
func (s *Store) Save(ctx context.Context, enc combat.Encounter) (err error) {
	if err := enc.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO encounters (id, name, active, round) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, active = excluded.active, round = excluded.round`,
		enc.ID, enc.Name, enc.Active, enc.Round,
	); err != nil {
		return fmt.Errorf("upsert encounter %s: %w", enc.ID, err)
	}
	if enc.Active {
		if _, err = tx.ExecContext(ctx, `UPDATE encounters SET active = 0 WHERE id <> ?`, enc.ID); err != nil {
			return fmt.Errorf("deactivate encounters: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM combatants WHERE encounter_id = ?`, enc.ID); err != nil {
		return fmt.Errorf("clear combatants of %s: %w", enc.ID, err)
	}

	for i, c := range enc.Combatants {
		var actorID sql.NullString
		if c.Actor != nil && c.Actor.ID != "" {
			actorFlags, mErr := marshalFlags(c.Actor.Flags)
			if mErr != nil {
				return mErr
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO actors (id, name, flags) VALUES (?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET name = excluded.name, flags = excluded.flags`,
				c.Actor.ID, c.Actor.Name, actorFlags,
			); err != nil {
				return fmt.Errorf("upsert actor %s: %w", c.Actor.ID, err)
			}
			actorID = sql.NullString{String: c.Actor.ID, Valid: true}
		}
		flags, mErr := marshalFlags(c.Flags)
		if mErr != nil {
			return mErr
		}
		var initiative sql.NullFloat64
		if v, ok := c.InitiativeValue(); ok {
			initiative = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO combatants (id, encounter_id, position, name, actor_id, initiative, hidden, defeated, flags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, enc.ID, i, c.Name, actorID, initiative, c.Hidden, c.Defeated, flags,
		); err != nil {
			return fmt.Errorf("insert combatant %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load implements storage.Store.
func (s *Store) Load(ctx context.Context, id string) (combat.Encounter, error) {
	var enc combat.Encounter
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, active, round FROM encounters WHERE id = ?`, id,
	).Scan(&enc.ID, &enc.Name, &enc.Active, &enc.Round)
	if errors.Is(err, sql.ErrNoRows) {
		return combat.Encounter{}, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	if err != nil {
		return combat.Encounter{}, fmt.Errorf("load encounter %s: %w", id, err)
	}
	enc.Combatants, err = s.combatants(ctx, id)
	if err != nil {
		return combat.Encounter{}, err
	}
	return enc, nil
}

// List implements storage.Store.
func (s *Store) List(ctx context.Context) ([]combat.Encounter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, active, round FROM encounters ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()
	var out []combat.Encounter
	for rows.Next() {
		var enc combat.Encounter
		if err := rows.Scan(&enc.ID, &enc.Name, &enc.Active, &enc.Round); err != nil {
			return nil, fmt.Errorf("scan encounter: %w", err)
		}
		out = append(out, enc)
	}
	return out, rows.Err()
}

// SetActive implements storage.Store.
func (s *Store) SetActive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE encounters SET active = CASE WHEN id = ? THEN 1 ELSE 0 END
		 WHERE EXISTS (SELECT 1 FROM encounters WHERE id = ?)`, id, id)
	if err != nil {
		return fmt.Errorf("activate encounter %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	return nil
}

// Active implements storage.Store.
func (s *Store) Active(ctx context.Context) (tracker.Encounter, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM encounters WHERE active = 1 ORDER BY rowid LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNoActiveEncounter
	}
	if err != nil {
		return nil, fmt.Errorf("find active encounter: %w", err)
	}
	return &handle{store: s, id: id}, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, id string) (tracker.Encounter, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM encounters WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get encounter %s: %w", id, err)
	}
	return &handle{store: s, id: id}, nil
}

func (s *Store) combatants(ctx context.Context, encounterID string) ([]*combat.Combatant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.initiative, c.hidden, c.defeated, c.flags,
		        a.id, a.name, a.flags
		   FROM combatants c
		   LEFT JOIN actors a ON a.id = c.actor_id
		  WHERE c.encounter_id = ?
		  ORDER BY c.position`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list combatants of %s: %w", encounterID, err)
	}
	defer rows.Close()

	var out []*combat.Combatant
	for rows.Next() {
		var (
			c                          combat.Combatant
			initiative                 sql.NullFloat64
			flags                      string
			actorID, actorName, aFlags sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &initiative, &c.Hidden, &c.Defeated, &flags,
			&actorID, &actorName, &aFlags); err != nil {
			return nil, fmt.Errorf("scan combatant: %w", err)
		}
		if initiative.Valid {
			c.Initiative = combat.Float(initiative.Float64)
		}
		if c.Flags, err = unmarshalFlags(flags); err != nil {
			return nil, err
		}
		if actorID.Valid {
			c.Actor = &combat.Actor{ID: actorID.String, Name: actorName.String}
			if c.Actor.Flags, err = unmarshalFlags(aFlags.String); err != nil {
				return nil, err
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

type handle struct {
	store *Store
	id    string
}

func (h *handle) ID() string { return h.id }

func (h *handle) Combatants(ctx context.Context) ([]*combat.Combatant, error) {
	return h.store.combatants(ctx, h.id)
}

// BatchUpdate applies every update in one transaction or none of them.
func (h *handle) BatchUpdate(ctx context.Context, updates []combat.InitiativeUpdate) (err error) {
	tx, err := h.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, u := range updates {
		res, execErr := tx.ExecContext(ctx,
			`UPDATE combatants SET initiative = ? WHERE id = ? AND encounter_id = ?`,
			u.Initiative, u.CombatantID, h.id)
		if execErr != nil {
			return fmt.Errorf("update combatant %s: %w", u.CombatantID, execErr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("encounter %s: %w: %s", h.id, storage.ErrCombatantNotFound, u.CombatantID)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func marshalFlags(f combat.Flags) (string, error) {
	if len(f) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode flags: %w", err)
	}
	return string(b), nil
}

func unmarshalFlags(s string) (combat.Flags, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var f combat.Flags
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	return f, nil
}
