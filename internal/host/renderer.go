package host

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// unrolled marks a combatant without a finite initiative.
const unrolled = "-"

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Renderer writes an encounter's turn order as a table.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer returns a Renderer writing to out.
//
// Precondition: out must be non-nil.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render reads enc's combatants and writes them in turn order.
func (r *Renderer) Render(ctx context.Context, enc tracker.Encounter) error {
	cs, err := enc.Combatants(ctx)
	if err != nil {
		return fmt.Errorf("reading combatants of %s: %w", enc.ID(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = fmt.Fprintf(r.out, "Encounter %s\n%s\n", enc.ID(), TurnOrderTable(cs))
	return err
}

// TurnOrderTable formats cs in turn order, one row per combatant.
func TurnOrderTable(cs []*combat.Combatant) string {
	rows := make([][]string, 0, len(cs))
	for i, c := range combat.TurnOrder(cs) {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Name,
			FormatInitiative(c),
			status(c),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Combatant", "Initiative", "Status").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// FormatInitiative renders a combatant's initiative without trailing zeros.
func FormatInitiative(c *combat.Combatant) string {
	v, ok := c.InitiativeValue()
	if !ok {
		return unrolled
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func status(c *combat.Combatant) string {
	var parts []string
	if c.Hidden {
		parts = append(parts, "hidden")
	}
	if c.Defeated {
		parts = append(parts, "defeated")
	}
	return strings.Join(parts, ",")
}
