// Package gcal wraps the Google Calendar API for the webhook's two
// needs: inserting a parsed event and listing the upcoming agenda.
package gcal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/agendabot/agendabot/internal/schedule"
)

// Client is a wrapper around the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client using the provided
// authenticated HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// InsertEvent inserts a new event into a calendar.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.service.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return created, nil
}

// ListUpcomingEvents retrieves the events of a calendar within the
// given window, with recurring events expanded and ordered by start
// time.
func (c *Client) ListUpcomingEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	eventsList, err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return eventsList.Items, nil
}

// fallbackSummary is used when the parser produced an empty summary.
const fallbackSummary = "Novo compromisso"

// EventFromResult builds the calendar event for a parsed scheduling
// instruction. The timezone name is duplicated into the start and end
// blocks as the Calendar API expects.
func EventFromResult(res schedule.Result, description, tz string) *calendar.Event {
	summary := res.Summary
	if summary == "" {
		summary = fallbackSummary
	}

	return &calendar.Event{
		Summary:     summary,
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: res.StartISO,
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: res.EndISO,
			TimeZone: tz,
		},
	}
}
