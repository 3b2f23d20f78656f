package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"reception-service/internal/config"
	"reception-service/internal/gcal"
	"reception-service/internal/store"
)

// Datastore is the persistence surface the handlers and the booking engine
// use. *store.Store implements it; tests substitute an in-memory fake.
type Datastore interface {
	GetBusiness(ctx context.Context, id string) (*store.Business, error)
	GetCredential(ctx context.Context, businessID string) (string, error)
	SaveCredential(ctx context.Context, businessID, refreshToken string) error
	MarkConnected(ctx context.Context, businessID string) error
	MarkNeedsReauth(ctx context.Context, businessID string, clearToken bool) error
	InsertAppointment(ctx context.Context, a *store.Appointment) error
	InsertTask(ctx context.Context, t *store.Task) error
	ListAppointments(ctx context.Context, businessID string, from, to time.Time, filtered bool) ([]store.Appointment, error)
}

type App struct {
	DB       Datastore
	Calendar gcal.ClientFactory
	Resolver *gcal.Resolver
	Notifier gcal.Notifier
	OAuth    *oauth2.Config
	Cfg      *config.Config
	Log      *zap.Logger
}
