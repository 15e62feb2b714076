package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Action names dispatched by the host UI.
const (
	ActionGroupInitiative = "group-initiative"
	ActionReverseOrder    = "reverse-order"
)

// ErrUnknownAction is returned by Dispatch for an unregistered action.
var ErrUnknownAction = errors.New("unknown action")

// Event is one user-triggered action.
type Event struct {
	Action string
	// Encounter is the encounter the triggering tracker view shows, if any.
	Encounter EncounterRef
}

// Handler runs one action.
type Handler func(ctx context.Context, ev Event) error

// Control is an action button exposed to the user.
type Control struct {
	Action string
	Label  string
	Title  string
}

// Controls returns the buttons to show. The reverse button follows the
// showReverseButton setting; hiding it does not unregister the action.
func Controls(host HostContext) []Control {
	out := []Control{{
		Action: ActionGroupInitiative,
		Label:  "Group Initiative",
		Title:  "Roll initiative for initiative groups (if any)",
	}}
	if ShowReverseSetting(host) {
		out = append(out, Control{
			Action: ActionReverseOrder,
			Label:  "Reverse",
			Title:  "Reverse the current combat turn order",
		})
	}
	return out
}

// Registry maps action names to handlers and is the error boundary for them:
// handler errors are logged and swallowed.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewRegistry returns an empty Registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{handlers: make(map[string]Handler), logger: logger}
}

// Register binds h to action, replacing any previous handler.
func (r *Registry) Register(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for ev.Action.
//
// Postcondition: returns ErrUnknownAction for an unregistered action and nil
// otherwise; handler errors are logged at error level, never returned.
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	r.mu.RLock()
	h, ok := r.handlers[ev.Action]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
	if err := h(ctx, ev); err != nil {
		r.logger.Error("tracker action failed",
			zap.String("action", ev.Action),
			zap.String("encounter", string(ev.Encounter)),
			zap.Error(err),
		)
	}
	return nil
}

// RegisterActions binds the service's actions to their names on r.
func RegisterActions(r *Registry, svc *Service) {
	r.Register(ActionGroupInitiative, func(ctx context.Context, _ Event) error {
		return svc.PerformGroupInitiative(ctx)
	})
	r.Register(ActionReverseOrder, func(ctx context.Context, ev Event) error {
		return svc.PerformReverseOrder(ctx, ev.Encounter)
	})
}
