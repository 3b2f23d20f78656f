package app

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"reception-service/internal/gcal"
	"reception-service/internal/logger"
	"reception-service/internal/metrics"
	"reception-service/internal/store"
)

// GET /healthz
func (a *App) HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/calendar/auth?purpose&next
// Begins the OAuth consent flow for the authenticated business.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	businessID := BusinessID(c)

	purpose := c.DefaultQuery("purpose", gcal.PurposeCalendar)
	next := c.DefaultQuery("next", "/dashboard")

	state, err := gcal.SignState(a.Cfg.Auth.JWTSecret, businessID, purpose, next)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign state"})
		return
	}

	// ApprovalForce so re-consent yields a refresh token when Google would
	// otherwise omit it.
	authURL := a.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// GET /oauth2callback?code&state
// Completes provider authorization. Every failure redirects with a
// machine-readable reason; this handler never surfaces a raw error page.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	log := logger.FromContext(c)
	fail := func(reason string) {
		c.Redirect(http.StatusFound, appendQuery(a.Cfg.Google.ErrorRedirectURL, "reason", reason))
	}
	if a.OAuth == nil {
		fail("exception")
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		fail("missing_code_or_state")
		return
	}

	claims, err := gcal.ParseState(a.Cfg.Auth.JWTSecret, state)
	if err != nil {
		log.Warn("oauth callback with bad state", zap.Error(err))
		fail("bad_state")
		return
	}

	ctx := c.Request.Context()
	if _, err := a.DB.GetBusiness(ctx, claims.BusinessID); err != nil {
		if errors.Is(err, store.ErrBusinessNotFound) {
			fail("bad_business")
		} else {
			log.Error("business lookup failed during oauth callback", zap.Error(err))
			fail("exception")
		}
		return
	}

	token, err := a.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Error("oauth code exchange failed",
			zap.String("business_id", claims.BusinessID), zap.Error(err))
		fail("exception")
		return
	}

	// Google only returns a refresh token on first consent. A token-less
	// re-consent must keep the stored credential, never overwrite it.
	existing, err := a.DB.GetCredential(ctx, claims.BusinessID)
	if err != nil {
		log.Error("credential lookup failed during oauth callback", zap.Error(err))
		fail("exception")
		return
	}
	switch {
	case token.RefreshToken != "":
		err = a.DB.SaveCredential(ctx, claims.BusinessID, token.RefreshToken)
	case existing != "":
		err = a.DB.MarkConnected(ctx, claims.BusinessID)
	default:
		fail("no_refresh_token")
		return
	}
	if err != nil {
		log.Error("credential store failed during oauth callback", zap.Error(err))
		fail("exception")
		return
	}

	log.Info("calendar connected",
		zap.String("business_id", claims.BusinessID),
		zap.String("purpose", claims.Purpose))
	next := claims.Next
	if next == "" {
		next = "/dashboard"
	}
	c.Redirect(http.StatusFound, appendQuery(next, claims.Purpose, "connected"))
}

// GET /api/calendar/events?timeMin&timeMax
func (a *App) GetCalendarEventsHandler(c *gin.Context) {
	businessID := BusinessID(c)
	timeMin, timeMax, ok := parseWindow(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	calendarID, err := a.Resolver.Resolve(ctx, businessID, "")
	if err != nil {
		a.providerFail(c, businessID, err)
		return
	}
	client, err := a.Calendar.ClientFor(ctx, businessID)
	if err != nil {
		a.providerFail(c, businessID, err)
		return
	}
	events, err := client.ListEvents(ctx, calendarID, timeMin, timeMax)
	if err != nil {
		a.providerFail(c, businessID, err)
		return
	}
	if events == nil {
		events = []gcal.Event{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"events":      events,
		"business_id": businessID,
	})
}

// POST /api/calendar/book
func (a *App) BookAppointmentHandler(c *gin.Context) {
	businessID := BusinessID(c)
	var req BookingRequest
	if err := c.BindJSON(&req); err != nil {
		metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateBooking(businessID, &req); err != nil {
		metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartAtUTCStr)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at_utc"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndAtUTCStr)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_at_utc"})
		return
	}
	if !start.Before(end) {
		metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return
	}

	result, err := a.Book(c.Request.Context(), businessID, &req, start.UTC(), end.UTC())
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.BookingsTotal.WithLabelValues("conflict").Inc()
			c.JSON(http.StatusConflict, gin.H{
				"error":     "slot already booked",
				"conflicts": conflict.Conflicts,
			})
			return
		}
		outcome := "error"
		if gcal.Classify(err).IsReauthRequired {
			outcome = "reauth_required"
		}
		metrics.BookingsTotal.WithLabelValues(outcome).Inc()
		a.providerFail(c, businessID, err)
		return
	}

	metrics.BookingsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"appointment_id":    result.AppointmentID,
		"event_id":          result.EventID,
		"event_link":        result.EventLink,
		"meet_link":         result.MeetLink,
		"task_id":           result.TaskID,
		"notification_sent": result.NotificationSent,
		"message":           result.Message,
	})
}

// GET /api/appointments?from=ISO&to=ISO
func (a *App) ListAppointmentsHandler(c *gin.Context) {
	businessID := BusinessID(c)
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var (
		from time.Time
		to   time.Time
		err  error
	)
	if fromStr != "" && toStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
			return
		}
	}

	appointments, err := a.DB.ListAppointments(c.Request.Context(), businessID, from, to, fromStr != "" && toStr != "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if appointments == nil {
		appointments = []store.Appointment{}
	}
	c.JSON(http.StatusOK, appointments)
}

// POST /api/calendar/tag-legacy?businessId&timeMin&timeMax[&calendarId]
// Operator-gated maintenance: tags historical events with the business
// marker. Authenticated by a static admin secret, not a user session.
func (a *App) TagLegacyEventsHandler(c *gin.Context) {
	secret := c.GetHeader("X-Admin-Secret")
	if a.Cfg.Auth.AdminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(a.Cfg.Auth.AdminSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
		return
	}

	businessID := c.Query("businessId")
	if businessID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "businessId required"})
		return
	}
	timeMin, timeMax, ok := parseWindow(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	calendarID := c.Query("calendarId")
	if calendarID == "" {
		var err error
		calendarID, err = a.Resolver.Resolve(ctx, businessID, "")
		if err != nil {
			a.providerFail(c, businessID, err)
			return
		}
	}
	client, err := a.Calendar.ClientFor(ctx, businessID)
	if err != nil {
		a.providerFail(c, businessID, err)
		return
	}

	result, err := gcal.Backfill(ctx, client, businessID, calendarID, timeMin, timeMax, logger.FromContext(c))
	if err != nil {
		a.providerFail(c, businessID, err)
		return
	}
	metrics.BackfillPatchedCounter.Add(float64(result.Patched))
	c.JSON(http.StatusOK, result)
}

// providerFail maps a failed provider call onto the wire. Reauth-classified
// failures invalidate the stored credential unconditionally and return 401
// with the fixed error code; everything else is a 500 with the underlying
// message. The two must never swap.
func (a *App) providerFail(c *gin.Context, businessID string, err error) {
	pe := gcal.Classify(err)
	if pe.IsReauthRequired {
		metrics.ReauthRequiredCounter.Inc()
		if merr := a.DB.MarkNeedsReauth(c.Request.Context(), businessID, true); merr != nil {
			logger.FromContext(c).Error("failed to mark business needs_reauth",
				zap.String("business_id", businessID), zap.Error(merr))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": gcal.ReauthErrorCode})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": pe.Message})
}

func parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	timeMinStr := c.Query("timeMin")
	timeMaxStr := c.Query("timeMax")
	if timeMinStr == "" || timeMaxStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeMin and timeMax required (RFC3339)"})
		return time.Time{}, time.Time{}, false
	}
	timeMin, err := time.Parse(time.RFC3339, timeMinStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeMin"})
		return time.Time{}, time.Time{}, false
	}
	timeMax, err := time.Parse(time.RFC3339, timeMaxStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeMax"})
		return time.Time{}, time.Time{}, false
	}
	if !timeMin.Before(timeMax) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeMin must be before timeMax"})
		return time.Time{}, time.Time{}, false
	}
	return timeMin.UTC(), timeMax.UTC(), true
}

func appendQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
