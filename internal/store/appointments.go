package store

import (
	"context"
	"time"
)

func (s *Store) InsertAppointment(ctx context.Context, a *Appointment) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = AppointmentConfirmed
	}

	q := `INSERT INTO appointments
	      (id, business_id, customer_id, customer_name, customer_phone, customer_email,
	       service, start_at_utc, end_at_utc, event_id, event_link, meet_link, status,
	       created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := s.DB.Exec(ctx, q,
		a.ID, a.BusinessID, a.CustomerID, a.CustomerName, a.CustomerPhone, a.CustomerEmail,
		a.Service, a.StartAtUTC, a.EndAtUTC, a.EventID, a.EventLink, a.MeetLink, a.Status,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *Store) ListAppointments(ctx context.Context, businessID string, from, to time.Time, filtered bool) ([]Appointment, error) {
	var (
		q    string
		args []any
	)
	if filtered {
		q = `SELECT id, business_id, customer_id, customer_name, customer_phone, customer_email,
		            service, start_at_utc, end_at_utc, event_id, event_link, meet_link, status,
		            created_at, updated_at
		     FROM appointments
		     WHERE business_id=$1 AND start_at_utc >= $2 AND start_at_utc < $3
		     ORDER BY start_at_utc`
		args = []any{businessID, from, to}
	} else {
		q = `SELECT id, business_id, customer_id, customer_name, customer_phone, customer_email,
		            service, start_at_utc, end_at_utc, event_id, event_link, meet_link, status,
		            created_at, updated_at
		     FROM appointments
		     WHERE business_id=$1
		     ORDER BY start_at_utc`
		args = []any{businessID}
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.CustomerID, &a.CustomerName,
			&a.CustomerPhone, &a.CustomerEmail, &a.Service, &a.StartAtUTC, &a.EndAtUTC,
			&a.EventID, &a.EventLink, &a.MeetLink, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
