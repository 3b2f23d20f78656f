package store

import (
	"context"
	"time"
)

func (s *Store) InsertTask(ctx context.Context, t *Task) error {
	t.CreatedAt = time.Now().UTC()
	q := `INSERT INTO tasks
	      (id, business_id, title, due_at_utc, event_id, meet_link, attendee_email, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.DB.Exec(ctx, q,
		t.ID, t.BusinessID, t.Title, t.DueAtUTC, t.EventID, t.MeetLink, t.AttendeeEmail, t.CreatedAt)
	return err
}
