package integracion

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sistemamasajes/integracion/pkg/outbox"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		})
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderEntries prints outbox entries as a table.
func renderEntries(w io.Writer, entries []outbox.Entry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, okStyle.Render("outbox is empty"))
		return err
	}
	t := newTable("TASK", "METHOD", "ENDPOINT", "ATTEMPTS", "AGE", "LAST ERROR")
	for _, e := range entries {
		t.Row(
			e.TaskID.String(),
			e.Method,
			e.Endpoint,
			strconv.Itoa(e.Attempts),
			now.Sub(e.CreatedAt).Round(time.Second).String(),
			truncate(e.LastError, 48),
		)
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("%d pending sync task(s)", len(entries))),
		t.String(),
	))
	return err
}

// renderStatus prints the sync status of a gateway.
func renderStatus(w io.Writer, addr string, s SyncStatus) error {
	queue := okStyle.Render("0")
	if s.Queue > 0 {
		queue = warnStyle.Render(strconv.Itoa(s.Queue))
	}
	mode := okStyle.Render("read-write")
	if s.ReadOnly {
		mode = warnStyle.Render("read-only")
	}
	lines := []string{
		titleStyle.Render("integracion " + addr),
		field("core", s.CoreURL),
		field("mode", mode),
		field("queue", queue),
		field("processed", strconv.FormatUint(s.Worker.Processed, 10)),
		field("retried", strconv.FormatUint(s.Worker.Retried, 10)),
		field("dropped", strconv.FormatUint(s.Worker.Dropped, 10)),
		field("subscribers", strconv.Itoa(s.Subscribers)),
	}
	if s.Outbox != nil {
		lines = append(lines, field("outbox", fmt.Sprintf("%d pending, %d done, %d dropped",
			s.Outbox.Pending, s.Outbox.Done, s.Outbox.Dropped)))
	}
	if len(s.Pending) > 0 {
		t := newTable("TASK", "METHOD", "ENDPOINT", "ATTEMPTS", "QUEUED")
		for _, task := range s.Pending {
			t.Row(
				task.ID.String(),
				task.Op.Method(),
				task.Endpoint,
				strconv.Itoa(task.Attempts),
				task.EnqueuedAt.Format(time.RFC3339),
			)
		}
		lines = append(lines, "", t.String())
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
