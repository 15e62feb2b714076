package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// Console commands that are not tracker actions.
const (
	CommandShow     = "show"
	CommandControls = "controls"
	CommandQuit     = "quit"
)

// MsgNoCombatToShow is shown when show cannot resolve an encounter.
const MsgNoCombatToShow = "No active combat to show."

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Console reads one command per line and dispatches it against the host.
// It satisfies server.Service.
type Console struct {
	registry *tracker.Registry
	host     *Context
	in       io.Reader
	out      io.Writer
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewConsole returns a Console reading from in and writing to out.
//
// Precondition: all arguments must be non-nil.
func NewConsole(registry *tracker.Registry, host *Context, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	return &Console{
		registry: registry,
		host:     host,
		in:       in,
		out:      out,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start reads commands until EOF, quit, Stop, or ctx cancellation.
// A Console runs at most once. On return the input is closed when it
// implements io.Closer, which unblocks the pending read; any other reader
// keeps its read goroutine parked until the next line or EOF.
func (c *Console) Start(ctx context.Context) error {
	defer c.Stop()
	if closer, ok := c.in.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.stop:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			err := c.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// Stop makes Start return.
func (c *Console) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Execute runs one command line: an action name with an optional encounter
// ID, or one of show, controls, quit. Blank lines are ignored.
//
// Postcondition: returns ErrQuit for quit, a wrapped tracker.ErrUnknownAction
// for unregistered commands, and nil otherwise. Action failures are logged by
// the registry, not returned.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	var ref tracker.EncounterRef
	if len(fields) > 1 {
		ref = tracker.EncounterRef(fields[1])
	}
	c.logger.Debug("console command",
		zap.String("command", fields[0]),
		zap.String("encounter", string(ref)),
	)

	switch fields[0] {
	case CommandQuit, "exit":
		return ErrQuit
	case CommandControls, "help":
		c.printControls()
		return nil
	case CommandShow:
		return c.show(ctx, ref)
	}
	return c.registry.Dispatch(ctx, tracker.Event{Action: fields[0], Encounter: ref})
}

func (c *Console) show(ctx context.Context, ref tracker.EncounterRef) error {
	enc, err := c.host.Encounter(ctx, ref)
	if errors.Is(err, tracker.ErrNoActiveEncounter) || errors.Is(err, tracker.ErrEncounterNotFound) {
		c.host.NotifyWarning(MsgNoCombatToShow)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up encounter: %w", err)
	}
	return c.host.RenderTracker(ctx, enc)
}

func (c *Console) printControls() {
	for _, ctl := range tracker.Controls(c.host) {
		_, _ = fmt.Fprintf(c.out, "%-18s %s\n", ctl.Action, ctl.Title)
	}
	_, _ = fmt.Fprintf(c.out, "%-18s %s\n", CommandShow+" [id]", "Show the turn order")
	_, _ = fmt.Fprintf(c.out, "%-18s %s\n", CommandQuit, "Leave the tracker")
}
