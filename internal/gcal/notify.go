package gcal

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ConfirmationEmail is one booking-confirmation message.
type ConfirmationEmail struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a confirmation on behalf of a business.
type Notifier interface {
	SendConfirmation(ctx context.Context, businessID string, msg ConfirmationEmail) error
}

// GmailNotifier sends mail through the business's own Gmail identity, using
// the same stored refresh token as the calendar client. Confirmations arrive
// from the business's address, not a shared system sender.
type GmailNotifier struct {
	OAuth *oauth2.Config
	Creds CredentialStore
}

func NewGmailNotifier(oauthCfg *oauth2.Config, creds CredentialStore) *GmailNotifier {
	return &GmailNotifier{OAuth: oauthCfg, Creds: creds}
}

func (n *GmailNotifier) SendConfirmation(ctx context.Context, businessID string, msg ConfirmationEmail) error {
	refreshToken, err := n.Creds.GetCredential(ctx, businessID)
	if err != nil {
		return err
	}
	if refreshToken == "" {
		return fmt.Errorf("business %s: %w", businessID, ErrNoCredential)
	}

	httpClient := n.OAuth.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		msg.To, msg.Subject, msg.Body)
	gmsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	_, err = srv.Users.Messages.Send("me", gmsg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send confirmation for business %s: %w", businessID, err)
	}
	return nil
}
