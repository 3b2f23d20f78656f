package store

import "time"

// Calendar connection states for a business.
const (
	ConnectionUnconnected = "unconnected"
	ConnectionConnected   = "connected"
	ConnectionNeedsReauth = "needs_reauth"
)

// Appointment statuses. Cancellation is reserved; nothing in this service
// transitions an appointment out of confirmed yet.
const (
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

type Business struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name"`
	Timezone                 string     `json:"timezone,omitempty"`
	CalendarRefreshToken     string     `json:"-"`
	CalendarConnectionStatus string     `json:"calendar_connection_status"`
	CalendarConnectedAt      *time.Time `json:"calendar_connected_at,omitempty"`
	CalendarNeedsReauthAt    *time.Time `json:"calendar_needs_reauth_at,omitempty"`
}

type Appointment struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	CustomerID    string    `json:"customer_id,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerEmail string    `json:"customer_email"`
	Service       string    `json:"service"`
	StartAtUTC    time.Time `json:"start_at_utc"`
	EndAtUTC      time.Time `json:"end_at_utc"`
	EventID       string    `json:"event_id"`
	EventLink     string    `json:"event_link,omitempty"`
	MeetLink      string    `json:"meet_link,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

type Task struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	Title         string    `json:"title"`
	DueAtUTC      time.Time `json:"due_at_utc"`
	EventID       string    `json:"event_id,omitempty"`
	MeetLink      string    `json:"meet_link,omitempty"`
	AttendeeEmail string    `json:"attendee_email,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}
