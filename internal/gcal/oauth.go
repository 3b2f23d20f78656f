package gcal

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"reception-service/internal/config"
)

// Purposes distinguish which capability an OAuth consent authorizes. A
// business may connect several provider scopes independently; the purpose
// rides inside the signed state so the callback knows which one completed.
const (
	PurposeCalendar = "calendar"
	PurposeMailbox  = "mailbox"
)

// NewOAuthConfig builds the OAuth2 config for Google Calendar access.
// Returns nil when the integration is not configured.
func NewOAuthConfig(cfg *config.GoogleConfig) *oauth2.Config {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			calendar.CalendarScope,
			gmail.GmailSendScope,
		},
		Endpoint: google.Endpoint,
	}
}

// StateClaims is the payload of the signed OAuth state parameter.
type StateClaims struct {
	BusinessID string `json:"business_id"`
	Purpose    string `json:"purpose"`
	Next       string `json:"next,omitempty"`
	jwt.RegisteredClaims
}

const stateTTL = 30 * time.Minute

// SignState produces an HMAC-signed state token carrying the business id,
// the consent purpose, and the post-callback redirect target.
func SignState(secret, businessID, purpose, next string) (string, error) {
	now := time.Now()
	claims := StateClaims{
		BusinessID: businessID,
		Purpose:    purpose,
		Next:       next,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseState verifies and decodes a state token produced by SignState.
func ParseState(secret, state string) (*StateClaims, error) {
	var claims StateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("parse oauth state: %w", err)
	}
	if claims.BusinessID == "" || claims.Purpose == "" {
		return nil, fmt.Errorf("oauth state missing business id or purpose")
	}
	return &claims, nil
}
