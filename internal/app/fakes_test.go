package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"reception-service/internal/config"
	"reception-service/internal/gcal"
	"reception-service/internal/store"
)

// fakeStore is an in-memory Datastore.
type fakeStore struct {
	businesses   map[string]*store.Business
	appointments []*store.Appointment
	tasks        []*store.Task

	insertAppointmentErr error
	insertTaskErr        error
	taskCtxHadDeadline   bool

	savedCreds    map[string]string
	reauthMarked  []string
	connectedOnly []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		businesses: make(map[string]*store.Business),
		savedCreds: make(map[string]string),
	}
}

func (f *fakeStore) addBusiness(id, name, refreshToken string) {
	status := store.ConnectionUnconnected
	if refreshToken != "" {
		status = store.ConnectionConnected
	}
	f.businesses[id] = &store.Business{
		ID:                       id,
		Name:                     name,
		CalendarRefreshToken:     refreshToken,
		CalendarConnectionStatus: status,
	}
}

func (f *fakeStore) GetBusiness(ctx context.Context, id string) (*store.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, store.ErrBusinessNotFound
	}
	return b, nil
}

func (f *fakeStore) GetCredential(ctx context.Context, businessID string) (string, error) {
	b, ok := f.businesses[businessID]
	if !ok {
		return "", store.ErrBusinessNotFound
	}
	return b.CalendarRefreshToken, nil
}

func (f *fakeStore) SaveCredential(ctx context.Context, businessID, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refusing to store empty refresh token")
	}
	b, ok := f.businesses[businessID]
	if !ok {
		return store.ErrBusinessNotFound
	}
	b.CalendarRefreshToken = refreshToken
	b.CalendarConnectionStatus = store.ConnectionConnected
	f.savedCreds[businessID] = refreshToken
	return nil
}

func (f *fakeStore) MarkConnected(ctx context.Context, businessID string) error {
	b, ok := f.businesses[businessID]
	if !ok {
		return store.ErrBusinessNotFound
	}
	b.CalendarConnectionStatus = store.ConnectionConnected
	f.connectedOnly = append(f.connectedOnly, businessID)
	return nil
}

func (f *fakeStore) MarkNeedsReauth(ctx context.Context, businessID string, clearToken bool) error {
	b, ok := f.businesses[businessID]
	if !ok {
		return store.ErrBusinessNotFound
	}
	b.CalendarConnectionStatus = store.ConnectionNeedsReauth
	if clearToken {
		b.CalendarRefreshToken = ""
	}
	f.reauthMarked = append(f.reauthMarked, businessID)
	return nil
}

func (f *fakeStore) InsertAppointment(ctx context.Context, a *store.Appointment) error {
	if f.insertAppointmentErr != nil {
		return f.insertAppointmentErr
	}
	f.appointments = append(f.appointments, a)
	return nil
}

func (f *fakeStore) InsertTask(ctx context.Context, t *store.Task) error {
	_, f.taskCtxHadDeadline = ctx.Deadline()
	if f.insertTaskErr != nil {
		return f.insertTaskErr
	}
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeStore) ListAppointments(ctx context.Context, businessID string, from, to time.Time, filtered bool) ([]store.Appointment, error) {
	var out []store.Appointment
	for _, a := range f.appointments {
		if a.BusinessID != businessID {
			continue
		}
		if filtered && (a.StartAtUTC.Before(from) || !a.StartAtUTC.Before(to)) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// fakeCal is an in-memory gcal.Client.
type fakeCal struct {
	calendars []gcal.CalendarInfo
	events    map[string][]gcal.Event

	listEventsErr error
	insertErr     error

	insertCalls int
	meetLink    string
}

func newFakeCal() *fakeCal {
	return &fakeCal{events: make(map[string][]gcal.Event)}
}

func (f *fakeCal) ListCalendars(ctx context.Context) ([]gcal.CalendarInfo, error) {
	return f.calendars, nil
}

func (f *fakeCal) CreateCalendar(ctx context.Context, summary, description, timezone string) (string, error) {
	id := "cal-" + strconv.Itoa(len(f.calendars)+1)
	f.calendars = append(f.calendars, gcal.CalendarInfo{ID: id, Summary: summary, Description: description})
	return id, nil
}

func (f *fakeCal) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]gcal.Event, error) {
	if f.listEventsErr != nil {
		return nil, f.listEventsErr
	}
	var out []gcal.Event
	for _, ev := range f.events[calendarID] {
		if ev.StartTime.Before(timeMax) && ev.EndTime.After(timeMin) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCal) ListEventsMinimal(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]gcal.Event, error) {
	return f.ListEvents(ctx, calendarID, timeMin, timeMax)
}

func (f *fakeCal) InsertEvent(ctx context.Context, calendarID string, req gcal.EventRequest) (*gcal.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.insertCalls++
	ev := gcal.Event{
		ID:          "ev-" + strconv.Itoa(f.insertCalls),
		Summary:     req.Summary,
		Description: req.Description,
		StartTime:   req.Start,
		EndTime:     req.End,
		Status:      "confirmed",
		HTMLLink:    "https://calendar.example/ev-" + strconv.Itoa(f.insertCalls),
	}
	if req.WithMeetLink {
		ev.MeetLink = f.meetLink
	}
	f.events[calendarID] = append(f.events[calendarID], ev)
	return &ev, nil
}

func (f *fakeCal) PatchEventDescription(ctx context.Context, calendarID, eventID, description string) error {
	return nil
}

type fakeFactory struct {
	client gcal.Client
	err    error
}

func (f *fakeFactory) ClientFor(ctx context.Context, businessID string) (gcal.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

type fakeNotifier struct {
	err            error
	sent           []gcal.ConfirmationEmail
	ctxHadDeadline bool
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, businessID string, msg gcal.ConfirmationEmail) error {
	_, f.ctxHadDeadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func noCredFactory(businessID string) *fakeFactory {
	return &fakeFactory{err: fmt.Errorf("business %s: %w", businessID, gcal.ErrNoCredential)}
}

func testApp(db *fakeStore, factory gcal.ClientFactory, notifier gcal.Notifier) *App {
	cfg := &config.Config{}
	cfg.Google.DefaultTimezone = "UTC"
	cfg.Google.NotifyTimeout = time.Second
	cfg.Google.ErrorRedirectURL = "/settings/integrations"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AdminSecret = "admin-secret"
	return &App{
		DB:       db,
		Calendar: factory,
		Resolver: gcal.NewResolver(factory, "", "", "UTC"),
		Notifier: notifier,
		Cfg:      cfg,
		Log:      zap.NewNop(),
	}
}
