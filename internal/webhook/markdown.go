package webhook

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/agendabot/agendabot/internal/gsheets"
)

const profileHeading = "### Perfil do usuário (Google Sheets)"

const agendaHeading = "### Agenda (próximos 7 dias)"

// eventTimeLayout is the pt-BR day-first rendering used in chat replies.
const eventTimeLayout = "02/01/2006 15:04"

// profileMarkdown renders a sheet row as a markdown bullet list, one
// line per column, in the sheet's column order. Columns whose header
// starts with "_" are internal and not shown.
func profileMarkdown(row *gsheets.Row) string {
	lines := []string{profileHeading, ""}
	for _, header := range row.Headers {
		if strings.HasPrefix(header, "_") {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s:** %s", header, row.Values[header]))
	}
	return strings.Join(lines, "\n")
}

// eventTime renders a calendar event boundary for the chat reply,
// localized to loc. All-day boundaries carry only a date; anything
// unparseable is shown as received.
func eventTime(boundary *calendar.EventDateTime, loc *time.Location) string {
	if boundary == nil {
		return "—"
	}
	if boundary.Date != "" {
		if t, err := time.Parse("2006-01-02", boundary.Date); err == nil {
			return t.Format("02/01/2006")
		}
		return boundary.Date
	}
	if t, err := time.Parse(time.RFC3339, boundary.DateTime); err == nil {
		return t.In(loc).Format(eventTimeLayout)
	}
	return boundary.DateTime
}

// agendaMarkdown renders the upcoming events as markdown.
func agendaMarkdown(events []*calendar.Event, loc *time.Location) string {
	if len(events) == 0 {
		return agendaHeading + "\n\nNão encontrei eventos nos próximos 7 dias."
	}

	lines := []string{agendaHeading, ""}
	for _, event := range events {
		summary := event.Summary
		if summary == "" {
			summary = "Sem título"
		}
		lines = append(lines, fmt.Sprintf("- **%s**\n  - Início: %s\n  - Fim: %s",
			summary, eventTime(event.Start, loc), eventTime(event.End, loc)))
	}
	return strings.Join(lines, "\n")
}
