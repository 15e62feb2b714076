// Package host adapts an encounter store, configured settings, and a
// terminal into the tracker.HostContext the tracker actions run against.
package host

import (
	"context"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// EncounterStore resolves encounter handles. storage.Store satisfies it.
type EncounterStore interface {
	Active(ctx context.Context) (tracker.Encounter, error)
	Get(ctx context.Context, id string) (tracker.Encounter, error)
}

// Context implements tracker.HostContext.
type Context struct {
	store    EncounterStore
	settings *tracker.Settings
	notifier *Notifier
	renderer *Renderer
}

var _ tracker.HostContext = (*Context)(nil)

// New returns a Context over store.
//
// Precondition: all arguments must be non-nil.
func New(store EncounterStore, settings *tracker.Settings, notifier *Notifier, renderer *Renderer) *Context {
	return &Context{
		store:    store,
		settings: settings,
		notifier: notifier,
		renderer: renderer,
	}
}

// ActiveEncounter implements tracker.HostContext.
func (c *Context) ActiveEncounter(ctx context.Context) (tracker.Encounter, error) {
	return c.store.Active(ctx)
}

// Encounter implements tracker.HostContext. An empty ref resolves to the
// active encounter.
func (c *Context) Encounter(ctx context.Context, ref tracker.EncounterRef) (tracker.Encounter, error) {
	if ref == "" {
		return c.store.Active(ctx)
	}
	return c.store.Get(ctx, string(ref))
}

// Setting implements tracker.HostContext.
func (c *Context) Setting(key string) (any, bool) {
	return c.settings.Get(key)
}

// NotifyWarning implements tracker.HostContext.
func (c *Context) NotifyWarning(msg string) {
	c.notifier.Warn(msg)
}

// RenderTracker implements tracker.HostContext.
func (c *Context) RenderTracker(ctx context.Context, enc tracker.Encounter) error {
	return c.renderer.Render(ctx, enc)
}

// Settings returns the registry backing Setting.
func (c *Context) Settings() *tracker.Settings {
	return c.settings
}

// SettingsFromConfig registers the tracker settings and seeds them from cfg.
// A blank formula leaves the default in place.
//
// Postcondition: returns a registry holding every tracker.DefaultSettings entry.
func SettingsFromConfig(cfg config.TrackerConfig) (*tracker.Settings, error) {
	s, err := tracker.NewSettings(tracker.DefaultSettings()...)
	if err != nil {
		return nil, err
	}
	if cfg.InitiativeFormula != "" {
		if err := s.Set(tracker.SettingInitiativeFormula, cfg.InitiativeFormula); err != nil {
			return nil, err
		}
	}
	if err := s.Set(tracker.SettingShowReverseButton, cfg.ShowReverseButton); err != nil {
		return nil, err
	}
	return s, nil
}
