package gcal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CredentialStore is what this package needs from persistence: one refresh
// token per business plus the connection-status transitions around it.
type CredentialStore interface {
	GetCredential(ctx context.Context, businessID string) (string, error)
	SaveCredential(ctx context.Context, businessID, refreshToken string) error
	MarkConnected(ctx context.Context, businessID string) error
	MarkNeedsReauth(ctx context.Context, businessID string, clearToken bool) error
}

// Event is the provider-neutral calendar event shape.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	HTMLLink    string    `json:"html_link,omitempty"`
	MeetLink    string    `json:"meet_link,omitempty"`
}

// CalendarInfo describes one calendar visible to a business's account.
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
}

// EventRequest carries the fields for a new event insertion.
type EventRequest struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	Timezone      string
	AttendeeEmail string
	WithMeetLink  bool
}

// Client is the per-business calendar surface. The real implementation wraps
// the Google Calendar API; tests substitute an in-memory fake.
type Client interface {
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	CreateCalendar(ctx context.Context, summary, description, timezone string) (string, error)
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	// ListEventsMinimal projects only id, description and status, for jobs
	// that scan large windows.
	ListEventsMinimal(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, req EventRequest) (*Event, error)
	PatchEventDescription(ctx context.Context, calendarID, eventID, description string) error
}

// ClientFactory mints a Client bound to one business's stored credential.
type ClientFactory interface {
	ClientFor(ctx context.Context, businessID string) (Client, error)
}

// Google is the ClientFactory backed by the Google Calendar API.
type Google struct {
	OAuth *oauth2.Config
	Creds CredentialStore
}

func NewGoogle(oauthCfg *oauth2.Config, creds CredentialStore) *Google {
	return &Google{OAuth: oauthCfg, Creds: creds}
}

func (g *Google) ClientFor(ctx context.Context, businessID string) (Client, error) {
	refreshToken, err := g.Creds.GetCredential(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("business %s: %w", businessID, ErrNoCredential)
	}

	token := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := g.OAuth.Client(ctx, token)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &googleClient{srv: srv}, nil
}

type googleClient struct {
	srv *calendar.Service
}

func (c *googleClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := c.srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	var out []CalendarInfo
	for _, item := range list.Items {
		out = append(out, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
		})
	}
	return out, nil
}

func (c *googleClient) CreateCalendar(ctx context.Context, summary, description, timezone string) (string, error) {
	cal := &calendar.Calendar{
		Summary:     summary,
		Description: description,
		TimeZone:    timezone,
	}
	created, err := c.srv.Calendars.Insert(cal).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (c *googleClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	call := c.srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(250).
		Context(ctx)
	events, err := call.Do()
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, item := range events.Items {
		out = append(out, fromGoogleEvent(item))
	}
	return out, nil
}

func (c *googleClient) ListEventsMinimal(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	call := c.srv.Events.List(calendarID).
		SingleEvents(true).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(2500).
		Fields("items(id,description,status),nextPageToken").
		Context(ctx)

	var out []Event
	pageToken := ""
	for {
		events, err := call.PageToken(pageToken).Do()
		if err != nil {
			return nil, err
		}
		for _, item := range events.Items {
			out = append(out, Event{ID: item.Id, Description: item.Description, Status: item.Status})
		}
		if events.NextPageToken == "" {
			return out, nil
		}
		pageToken = events.NextPageToken
	}
}

func (c *googleClient) InsertEvent(ctx context.Context, calendarID string, req EventRequest) (*Event, error) {
	ev := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: req.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: req.Timezone,
		},
	}
	if req.AttendeeEmail != "" {
		ev.Attendees = []*calendar.EventAttendee{{Email: req.AttendeeEmail}}
	}

	call := c.srv.Events.Insert(calendarID, ev).
		// The service sends its own confirmation; Google must not notify.
		SendUpdates("none").
		Context(ctx)
	if req.WithMeetLink {
		ev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, err
	}
	out := fromGoogleEvent(created)
	return &out, nil
}

func (c *googleClient) PatchEventDescription(ctx context.Context, calendarID, eventID, description string) error {
	patch := &calendar.Event{Description: description}
	_, err := c.srv.Events.Patch(calendarID, eventID, patch).
		SendUpdates("none").
		Context(ctx).
		Do()
	return err
}

func fromGoogleEvent(item *calendar.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
		HTMLLink:    item.HtmlLink,
		MeetLink:    item.HangoutLink,
	}
	if item.Start != nil {
		if item.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
				ev.StartTime = t
			}
		} else if item.Start.Date != "" {
			if t, err := time.Parse("2006-01-02", item.Start.Date); err == nil {
				ev.StartTime = t
			}
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				ev.EndTime = t
			}
		} else if item.End.Date != "" {
			if t, err := time.Parse("2006-01-02", item.End.Date); err == nil {
				ev.EndTime = t
			}
		}
	}
	return ev
}
