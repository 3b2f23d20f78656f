package gcal

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// fakeClient is an in-memory Client used by resolver and backfill tests.
type fakeClient struct {
	mu        sync.Mutex
	calendars []CalendarInfo
	events    map[string][]Event

	listCalendarsErr error
	createErr        error
	listEventsErr    error
	patchErr         error

	createCalls int
	patchCalls  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(map[string][]Event)}
}

func (f *fakeClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCalendarsErr != nil {
		return nil, f.listCalendarsErr
	}
	out := make([]CalendarInfo, len(f.calendars))
	copy(out, f.calendars)
	return out, nil
}

func (f *fakeClient) CreateCalendar(ctx context.Context, summary, description, timezone string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createCalls++
	id := "cal-" + strconv.Itoa(f.createCalls)
	f.calendars = append(f.calendars, CalendarInfo{ID: id, Summary: summary, Description: description})
	return id, nil
}

func (f *fakeClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listEventsErr != nil {
		return nil, f.listEventsErr
	}
	out := make([]Event, len(f.events[calendarID]))
	copy(out, f.events[calendarID])
	return out, nil
}

func (f *fakeClient) ListEventsMinimal(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listEventsErr != nil {
		return nil, f.listEventsErr
	}
	var out []Event
	for _, ev := range f.events[calendarID] {
		out = append(out, Event{ID: ev.ID, Description: ev.Description, Status: ev.Status})
	}
	return out, nil
}

func (f *fakeClient) InsertEvent(ctx context.Context, calendarID string, req EventRequest) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := Event{
		ID:          "ev-" + strconv.Itoa(len(f.events[calendarID])+1),
		Summary:     req.Summary,
		Description: req.Description,
		StartTime:   req.Start,
		EndTime:     req.End,
		Status:      "confirmed",
	}
	f.events[calendarID] = append(f.events[calendarID], ev)
	return &ev, nil
}

func (f *fakeClient) PatchEventDescription(ctx context.Context, calendarID, eventID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchCalls++
	if f.patchErr != nil {
		return f.patchErr
	}
	events := f.events[calendarID]
	for i := range events {
		if events[i].ID == eventID {
			events[i].Description = description
			return nil
		}
	}
	return nil
}

type fakeFactory struct {
	client Client
	err    error
}

func (f *fakeFactory) ClientFor(ctx context.Context, businessID string) (Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}
