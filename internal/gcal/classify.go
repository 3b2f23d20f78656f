package gcal

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ReauthErrorCode is the single error string every caller branches on when a
// business needs to reconnect its calendar. UI banners and API clients match
// on this value, never on provider-specific messages.
const ReauthErrorCode = "google_reauth_required"

// ErrNoCredential is returned when a business has no stored refresh token.
// It classifies as reauthorization required.
var ErrNoCredential = errors.New("no calendar credential stored for business")

// ProviderError is the classification of a failed provider call. It is
// produced per call and consumed immediately; nothing persists it.
type ProviderError struct {
	IsReauthRequired bool
	IsInvalidGrant   bool
	HTTPStatus       int
	Message          string
}

func (e *ProviderError) Error() string { return e.Message }

// Classify inspects a provider-call failure and decides whether the stored
// credential is dead (reauthorization required) or the failure is transient.
// It is pure: call sites are responsible for invalidating the credential when
// IsReauthRequired is set.
func Classify(err error) *ProviderError {
	pe := &ProviderError{Message: err.Error()}

	if errors.Is(err, ErrNoCredential) {
		pe.IsReauthRequired = true
		return pe
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		pe.HTTPStatus = gerr.Code
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil {
			pe.HTTPStatus = rerr.Response.StatusCode
		}
		if rerr.ErrorCode == "invalid_grant" {
			pe.IsInvalidGrant = true
		}
	}

	msg := strings.ToLower(pe.Message)
	switch {
	case strings.Contains(msg, "invalid_grant"):
		pe.IsInvalidGrant = true
		pe.IsReauthRequired = true
	case pe.IsInvalidGrant,
		strings.Contains(msg, ReauthErrorCode),
		strings.Contains(msg, "token has been expired or revoked"),
		strings.Contains(msg, "token expired"),
		strings.Contains(msg, "token has been revoked"):
		pe.IsReauthRequired = true
	}
	return pe
}
