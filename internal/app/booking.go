package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reception-service/internal/gcal"
	"reception-service/internal/store"
)

type BookingRequest struct {
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Service       string `json:"service"`
	StartAtUTCStr string `json:"start_at_utc"` // RFC3339
	EndAtUTCStr   string `json:"end_at_utc"`
	WithMeetLink  bool   `json:"with_meet_link,omitempty"`
}

type BookingResult struct {
	AppointmentID    string `json:"appointment_id"`
	EventID          string `json:"event_id"`
	EventLink        string `json:"event_link,omitempty"`
	MeetLink         string `json:"meet_link,omitempty"`
	TaskID           string `json:"task_id,omitempty"`
	NotificationSent bool   `json:"notification_sent"`
	Message          string `json:"message"`
}

// ConflictError reports that the requested slot overlaps existing events.
// It carries the conflicting items for caller display.
type ConflictError struct {
	Conflicts []gcal.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot conflicts with %d existing event(s)", len(e.Conflicts))
}

// errValidation marks failures detected before any provider call.
var errValidation = errors.New("invalid booking request")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", errValidation, msg)
}

// validateBooking checks required fields. Failures here never reach the
// provider.
func validateBooking(businessID string, req *BookingRequest) error {
	if businessID == "" {
		return validationError("business id required")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return validationError("customer_name required")
	}
	if req.CustomerEmail == "" && req.CustomerPhone == "" {
		return validationError("customer_email or customer_phone required")
	}
	if req.StartAtUTCStr == "" || req.EndAtUTCStr == "" {
		return validationError("start_at_utc and end_at_utc required (RFC3339)")
	}
	return nil
}

// Book runs the full booking flow for one appointment request: resolve the
// business calendar, check the slot, insert the event, persist the local
// record, then the best-effort tail (companion task, confirmation email).
// Once the provider event exists, no later failure except appointment
// persistence is reported as an overall failure.
func (a *App) Book(ctx context.Context, businessID string, req *BookingRequest, start, end time.Time) (*BookingResult, error) {
	business, err := a.DB.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	calendarID, err := a.Resolver.Resolve(ctx, businessID, business.Name)
	if err != nil {
		return nil, err
	}
	client, err := a.Calendar.ClientFor(ctx, businessID)
	if err != nil {
		return nil, err
	}

	// Conflict check over [start, end). Not atomic against a concurrent
	// booking: the provider has no conditional insert, so two requests can
	// both pass this and double-book. Accepted limitation.
	existing, err := client.ListEvents(ctx, calendarID, start, end)
	if err != nil {
		return nil, err
	}
	var conflicts []gcal.Event
	for _, ev := range existing {
		if ev.Status != "cancelled" {
			conflicts = append(conflicts, ev)
		}
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	timezone := business.Timezone
	if timezone == "" {
		timezone = a.Cfg.Google.DefaultTimezone
	}
	event, err := client.InsertEvent(ctx, calendarID, gcal.EventRequest{
		Summary:       eventSummary(req),
		Description:   eventDescription(req),
		Start:         start,
		End:           end,
		Timezone:      timezone,
		AttendeeEmail: req.CustomerEmail,
		WithMeetLink:  req.WithMeetLink,
	})
	if err != nil {
		return nil, err
	}

	appointment := &store.Appointment{
		ID:            uuid.NewString(),
		BusinessID:    businessID,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Service:       req.Service,
		StartAtUTC:    start,
		EndAtUTC:      end,
		EventID:       event.ID,
		EventLink:     event.HTMLLink,
		MeetLink:      event.MeetLink,
		Status:        store.AppointmentConfirmed,
	}
	if err := a.DB.InsertAppointment(ctx, appointment); err != nil {
		// The provider event already exists; no compensating delete. The
		// orphan is surfaced rather than silently swallowed.
		return nil, fmt.Errorf("appointment record failed after event %s was created: %w", event.ID, err)
	}

	result := &BookingResult{
		AppointmentID: appointment.ID,
		EventID:       event.ID,
		EventLink:     event.HTMLLink,
		MeetLink:      event.MeetLink,
	}

	task := &store.Task{
		ID:            uuid.NewString(),
		BusinessID:    businessID,
		Title:         "Appointment: " + eventSummary(req),
		DueAtUTC:      start,
		EventID:       event.ID,
		MeetLink:      event.MeetLink,
		AttendeeEmail: req.CustomerEmail,
	}
	// Best-effort tail steps each get their own deadline so neither can
	// hold up the booking response.
	tctx, cancelTask := context.WithTimeout(ctx, a.Cfg.Google.NotifyTimeout)
	err = a.DB.InsertTask(tctx, task)
	cancelTask()
	if err != nil {
		a.Log.Warn("companion task creation failed",
			zap.String("business_id", businessID),
			zap.String("event_id", event.ID),
			zap.Error(err))
	} else {
		result.TaskID = task.ID
	}

	result.NotificationSent = a.sendConfirmation(ctx, businessID, business.Name, req, start)
	if result.NotificationSent {
		result.Message = "Appointment booked and confirmation sent."
	} else {
		result.Message = "Appointment booked. Confirmation email could not be sent."
	}
	return result, nil
}

// sendConfirmation emails the customer from the business's own identity. It
// runs under its own deadline so a slow mail provider cannot hold up the
// booking response.
func (a *App) sendConfirmation(ctx context.Context, businessID, businessName string, req *BookingRequest, start time.Time) bool {
	if req.CustomerEmail == "" {
		return false
	}
	nctx, cancel := context.WithTimeout(ctx, a.Cfg.Google.NotifyTimeout)
	defer cancel()

	subject := fmt.Sprintf("Appointment confirmed for %s", start.Format("Mon, 2 Jan 2006 15:04 MST"))
	body := fmt.Sprintf("Hi %s,\n\nYour appointment%s is confirmed for %s.\n\nSee you then,\n%s",
		req.CustomerName, serviceClause(req.Service),
		start.Format("Monday, 2 January 2006 at 15:04 MST"), businessName)
	err := a.Notifier.SendConfirmation(nctx, businessID, gcal.ConfirmationEmail{
		To:      req.CustomerEmail,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		a.Log.Warn("confirmation email failed",
			zap.String("business_id", businessID),
			zap.Error(err))
		return false
	}
	return true
}

func eventSummary(req *BookingRequest) string {
	if req.Service == "" {
		return req.CustomerName
	}
	return req.Service + " with " + req.CustomerName
}

func eventDescription(req *BookingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", req.CustomerName)
	if req.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", req.CustomerPhone)
	}
	if req.CustomerEmail != "" {
		fmt.Fprintf(&b, "Email: %s\n", req.CustomerEmail)
	}
	if req.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", req.Service)
	}
	b.WriteString("Booked by the reception console.")
	return b.String()
}

func serviceClause(service string) string {
	if service == "" {
		return ""
	}
	return " for " + service
}
