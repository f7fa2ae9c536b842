package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// Display writes styled cycle output to a terminal.
type Display struct {
	w io.Writer

	title    lipgloss.Style
	down     lipgloss.Style
	up       lipgloss.Style
	flat     lipgloss.Style
	bought   lipgloss.Style
	skipped  lipgloss.Style
	value    lipgloss.Style
	errStyle lipgloss.Style
}

// NewDisplay creates a Display writing to w. Colour support is detected
// from w, so plain buffers receive unstyled text.
func NewDisplay(w io.Writer) *Display {
	r := lipgloss.NewRenderer(w)
	return &Display{
		w: w,
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1),
		down:     r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		up:       r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		flat:     r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		bought:   r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		skipped:  r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		value:    r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
}

// Arrow returns the glyph for a price direction.
func Arrow(d domain.Direction) string {
	switch d {
	case domain.DirectionDown:
		return "↙"
	case domain.DirectionUp:
		return "↗"
	default:
		return "↔"
	}
}

// Banner prints the session header.
func (d *Display) Banner(symbol, mode string) {
	d.println(d.title.Render(fmt.Sprintf("dipbuyer: watching %s (%s mode)", symbol, mode)))
	d.println("")
}

// Cycle prints what one evaluation cycle did.
func (d *Display) Cycle(res domain.CycleResult) {
	d.print(d.RenderCycle(res))
}

// RenderCycle formats a cycle result.
func (d *Display) RenderCycle(res domain.CycleResult) string {
	var b strings.Builder
	if p := res.Initial; p != nil {
		fmt.Fprintln(&b, d.bought.Render(fmt.Sprintf("Initial purchase of %d %s at $%.2f", p.Quantity, res.Symbol, p.Price)))
		fmt.Fprintln(&b)
	}

	style := d.flat
	switch res.Direction {
	case domain.DirectionDown:
		style = d.down
	case domain.DirectionUp:
		style = d.up
	}
	change := res.Change
	if change < 0 {
		change = -change
	}
	fmt.Fprintln(&b, style.Render(fmt.Sprintf("%s $%.2f", Arrow(res.Direction), change)))

	if p := res.Purchase; res.Purchased && p != nil {
		fmt.Fprintln(&b, d.bought.Render(fmt.Sprintf("Purchased %d %s at $%.2f", p.Quantity, res.Symbol, p.Price)))
	} else {
		fmt.Fprintln(&b, d.skipped.Render(fmt.Sprintf("Did not purchase any %s", res.Symbol)))
	}
	return b.String()
}

// Valuation prints the portfolio value and profit.
func (d *Display) Valuation(v domain.Valuation) {
	d.print(d.RenderValuation(v))
}

// RenderValuation formats a valuation.
func (d *Display) RenderValuation(v domain.Valuation) string {
	var b strings.Builder
	fmt.Fprintln(&b, d.value.Render(fmt.Sprintf("Current portfolio value: $%.2f", v.Value)))
	fmt.Fprintln(&b, d.value.Render(fmt.Sprintf("Current portfolio profit: $%.2f", v.Profit)))
	fmt.Fprintln(&b)
	return b.String()
}

// Ledger prints every entry followed by a totals line.
func (d *Display) Ledger(symbol string, l domain.Ledger) {
	d.println(d.title.Render(fmt.Sprintf("Ledger for %s", symbol)))
	for i, e := range l.Entries() {
		d.println(fmt.Sprintf("%3d. %6d @ $%.2f", i+1, e.Quantity, e.Price))
	}
	d.println(fmt.Sprintf("     %6d units, cost $%.2f", l.TotalQuantity(), l.CostBasis()))
}

// Quote prints a single quote.
func (d *Display) Quote(q domain.Quote) {
	name := q.Symbol
	if q.Name != "" {
		name = fmt.Sprintf("%s (%s)", q.Symbol, q.Name)
	}
	d.println(d.title.Render(name))
	d.println(d.value.Render(fmt.Sprintf("$%.2f %s", q.Price, q.Currency)))
	d.println(d.skipped.Render(fmt.Sprintf("%s via %s", q.Time.Format("2006-01-02 15:04:05 MST"), q.Provider)))
}

// Error prints err.
func (d *Display) Error(err error) {
	d.println(d.errStyle.Render("Error: " + err.Error()))
}

func (d *Display) print(s string) {
	_, _ = io.WriteString(d.w, s)
}

func (d *Display) println(s string) {
	_, _ = io.WriteString(d.w, s+"\n")
}
