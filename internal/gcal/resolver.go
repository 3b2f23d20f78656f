package gcal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Marker returns the tag embedded in a calendar's description that binds it
// to a business. It is the durable half of the businessID→calendarID mapping:
// after a restart the resolver re-derives the mapping by searching for it.
func Marker(businessID string) string {
	return "[businessId:" + businessID + "]"
}

// HasMarker reports whether a description carries any business marker.
func HasMarker(description string) bool {
	return strings.Contains(description, "[businessId:")
}

// Resolver maps a business id to its dedicated provider calendar, creating
// one when none exists. Resolution order: primary-tenant shortcut, local
// cache, provider-side marker search, provisioning. The search-then-provision
// path runs under a per-business singleflight so two concurrent first
// resolutions cannot each provision a calendar.
type Resolver struct {
	Factory ClientFactory

	PrimaryBusinessID string
	PrimaryCalendarID string
	DefaultTimezone   string

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

func NewResolver(factory ClientFactory, primaryBusinessID, primaryCalendarID, defaultTimezone string) *Resolver {
	return &Resolver{
		Factory:           factory,
		PrimaryBusinessID: primaryBusinessID,
		PrimaryCalendarID: primaryCalendarID,
		DefaultTimezone:   defaultTimezone,
		cache:             make(map[string]string),
	}
}

// Resolve returns the provider calendar id for a business. nameHint, when
// non-empty, names a newly provisioned calendar.
func (r *Resolver) Resolve(ctx context.Context, businessID, nameHint string) (string, error) {
	if businessID == "" {
		return "", fmt.Errorf("resolve calendar: empty business id")
	}

	// The operator's own tenant maps to a configured calendar directly, so
	// the service never provisions a duplicate next to it.
	if r.PrimaryBusinessID != "" && businessID == r.PrimaryBusinessID && r.PrimaryCalendarID != "" {
		r.cachePut(businessID, r.PrimaryCalendarID)
		return r.PrimaryCalendarID, nil
	}

	if id, ok := r.cacheGet(businessID); ok {
		return id, nil
	}

	v, err, _ := r.group.Do(businessID, func() (interface{}, error) {
		// A concurrent caller may have resolved while we queued.
		if id, ok := r.cacheGet(businessID); ok {
			return id, nil
		}
		id, err := r.searchOrProvision(ctx, businessID, nameHint)
		if err != nil {
			return "", err
		}
		r.cachePut(businessID, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) searchOrProvision(ctx context.Context, businessID, nameHint string) (string, error) {
	client, err := r.Factory.ClientFor(ctx, businessID)
	if err != nil {
		return "", err
	}

	// A marker-bearing calendar is authoritative over an empty cache.
	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return "", fmt.Errorf("list calendars for business %s: %w", businessID, err)
	}
	marker := Marker(businessID)
	for _, cal := range calendars {
		if strings.Contains(cal.Description, marker) {
			return cal.ID, nil
		}
	}

	summary := nameHint
	if summary == "" {
		summary = "Appointments " + businessID
	}
	description := "Appointment calendar. " + marker
	id, err := client.CreateCalendar(ctx, summary, description, r.DefaultTimezone)
	if err != nil {
		return "", fmt.Errorf("provision calendar for business %s: %w", businessID, err)
	}
	return id, nil
}

func (r *Resolver) cacheGet(businessID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[businessID]
	return id, ok
}

func (r *Resolver) cachePut(businessID, calendarID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[businessID] = calendarID
}
