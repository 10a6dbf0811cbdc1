package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"apledger/internal/core"
	"apledger/internal/export"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	totalStyle   = cellStyle.Bold(true).Foreground(lipgloss.Color("#0000FF"))
	overdueStyle = cellStyle.Foreground(lipgloss.Color("9"))
	todayStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	paidStyle    = cellStyle.Foreground(lipgloss.Color("8"))
)

func PrintSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), message)
}

func PrintError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(message))
}

func PrintInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

// PrintDropped warns the operator that stored rows could not be read.
func PrintDropped(w io.Writer, kind string, n int) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render("!"),
		mutedStyle.Render(fmt.Sprintf("%d unreadable %s row(s) were skipped", n, kind)))
}

var obligationHeaders = []string{"Date", "Vendor", "Currency", "Amount", "Rate", "Amount_KRW", "Status", "Fixed", "ID"}

// RenderObligations renders records as a table with a total row. Pending
// rows are colored by how their due date compares to today.
func RenderObligations(records []core.Obligation, today core.Date) string {
	rows := make([][]string, 0, len(records)+1)
	for _, r := range records {
		fixed := ""
		if r.Recurring {
			fixed = "yes"
		}
		rows = append(rows, []string{
			r.DueDate.String(),
			r.Vendor,
			string(r.Money.Currency),
			r.Money.Foreign.String(),
			r.Money.Rate.String(),
			export.GroupThousands(r.Money.Base()),
			statusLabel(r, today),
			fixed,
			r.ID,
		})
	}
	rows = append(rows, []string{"", export.TotalLabel, "", "", "", export.GroupThousands(core.Total(records)), "", "", ""})

	totalRow := len(rows) - 1
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(obligationHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == totalRow:
				return totalStyle
			case row < len(records):
				return rowStyle(records[row], today)
			default:
				return cellStyle
			}
		})
	return t.String()
}

func statusLabel(r core.Obligation, today core.Date) string {
	if r.IsPaid() {
		return "paid"
	}
	return core.DuenessOf(r.DueDate, today).String()
}

func rowStyle(r core.Obligation, today core.Date) lipgloss.Style {
	if r.IsPaid() {
		return paidStyle
	}
	switch core.DuenessOf(r.DueDate, today) {
	case core.Overdue:
		return overdueStyle
	case core.DueToday:
		return todayStyle
	default:
		return cellStyle
	}
}

// RenderNotes renders the notes board as a numbered list.
func RenderNotes(notes []core.Note) string {
	if len(notes) == 0 {
		return mutedStyle.Render("no notes")
	}
	rows := make([][]string, len(notes))
	for i, n := range notes {
		rows[i] = []string{strconv.Itoa(i + 1), n.Content, n.ID}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("#", "Note", "ID").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// Confirm asks a yes/no question. It returns assumeYes without asking, and
// false when stdin is not a terminal.
func Confirm(question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !IsTerminal() {
		return false, nil
	}

	var confirm bool
	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	return confirm, nil
}

func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
