package webhook

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"
)

// agendaCalendar renders the upcoming events as an iCalendar feed, so
// the agenda can be subscribed to from a calendar app.
func agendaCalendar(events []*calendar.Event, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//agendabot//EN")

	for i, event := range events {
		vevent := ical.NewComponent(ical.CompEvent)

		if event.Id != "" {
			vevent.Props.SetText(ical.PropUID, event.Id)
		} else {
			vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%d-%s@agendabot", i, now.Format(time.RFC3339Nano)))
		}

		summary := event.Summary
		if summary == "" {
			summary = "Sem título"
		}
		vevent.Props.SetText(ical.PropSummary, summary)

		if event.Description != "" {
			vevent.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			vevent.Props.SetText(ical.PropLocation, event.Location)
		}

		setEventTime(vevent, "DTSTART", event.Start)
		setEventTime(vevent, "DTEND", event.End)

		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)

		cal.Children = append(cal.Children, vevent)
	}

	return cal
}

// setEventTime sets a DTSTART/DTEND property from a Calendar API event
// boundary, using a DATE value for all-day events. Unparseable
// boundaries are skipped.
func setEventTime(vevent *ical.Component, name string, boundary *calendar.EventDateTime) {
	if boundary == nil {
		return
	}

	if boundary.Date != "" {
		if t, err := time.Parse("2006-01-02", boundary.Date); err == nil {
			prop := ical.NewProp(name)
			prop.SetDate(t)
			vevent.Props.Set(prop)
		}
		return
	}

	if t, err := time.Parse(time.RFC3339, boundary.DateTime); err == nil {
		vevent.Props.SetDateTime(name, t)
	}
}
