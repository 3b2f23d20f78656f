package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrBusinessNotFound = errors.New("business not found")

func (s *Store) GetBusiness(ctx context.Context, id string) (*Business, error) {
	q := `SELECT id, name, timezone, calendar_refresh_token, calendar_connection_status,
	             calendar_connected_at, calendar_needs_reauth_at
	      FROM businesses WHERE id=$1`
	var b Business
	err := s.DB.QueryRow(ctx, q, id).Scan(&b.ID, &b.Name, &b.Timezone,
		&b.CalendarRefreshToken, &b.CalendarConnectionStatus,
		&b.CalendarConnectedAt, &b.CalendarNeedsReauthAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetCredential returns the stored calendar refresh token for a business,
// or empty when the business has never connected (or the token was cleared).
func (s *Store) GetCredential(ctx context.Context, businessID string) (string, error) {
	q := `SELECT calendar_refresh_token FROM businesses WHERE id=$1`
	var token string
	err := s.DB.QueryRow(ctx, q, businessID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrBusinessNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SaveCredential stores a refresh token and marks the calendar connected.
// The token must be non-empty: Google only returns a refresh token on first
// consent, so a callback without one must keep whatever is already stored.
func (s *Store) SaveCredential(ctx context.Context, businessID, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("refusing to store empty refresh token for business %s", businessID)
	}
	q := `UPDATE businesses
	      SET calendar_refresh_token=$1,
	          calendar_connection_status=$2,
	          calendar_connected_at=$3,
	          calendar_needs_reauth_at=NULL
	      WHERE id=$4`
	tag, err := s.DB.Exec(ctx, q, refreshToken, ConnectionConnected, time.Now().UTC(), businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// MarkConnected clears a needs_reauth marker without touching the stored
// token. Used when a re-consent callback carried no new refresh token but a
// usable one is already on file.
func (s *Store) MarkConnected(ctx context.Context, businessID string) error {
	q := `UPDATE businesses
	      SET calendar_connection_status=$1,
	          calendar_connected_at=$2,
	          calendar_needs_reauth_at=NULL
	      WHERE id=$3`
	tag, err := s.DB.Exec(ctx, q, ConnectionConnected, time.Now().UTC(), businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// MarkNeedsReauth flags a business as needing interactive reauthorization.
// With clearToken set the stored refresh token is dropped so later calendar
// calls fail fast with a missing-credential error instead of replaying a
// token the provider already rejected.
func (s *Store) MarkNeedsReauth(ctx context.Context, businessID string, clearToken bool) error {
	var q string
	if clearToken {
		q = `UPDATE businesses
		     SET calendar_connection_status=$1,
		         calendar_needs_reauth_at=$2,
		         calendar_refresh_token=''
		     WHERE id=$3`
	} else {
		q = `UPDATE businesses
		     SET calendar_connection_status=$1,
		         calendar_needs_reauth_at=$2
		     WHERE id=$3`
	}
	tag, err := s.DB.Exec(ctx, q, ConnectionNeedsReauth, time.Now().UTC(), businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}
