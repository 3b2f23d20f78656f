package gcal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BackfillResult aggregates one run of the legacy tagging job. The counters
// satisfy eligible = patched + skipped + errors and scanned >= eligible.
type BackfillResult struct {
	Scanned  int `json:"scanned"`
	Eligible int `json:"eligible"`
	Patched  int `json:"patched"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Backfill retroactively tags historical events on a calendar with the
// business marker. Marker-bearing and cancelled events are not eligible,
// which makes the job idempotent: a second pass over the same window finds
// nothing eligible and patches nothing. Patches run sequentially to stay
// inside provider rate limits; a failed patch is counted and the run
// continues. Skipped is part of the response contract but nothing produces
// it today.
func Backfill(ctx context.Context, client Client, businessID, calendarID string, timeMin, timeMax time.Time, log *zap.Logger) (*BackfillResult, error) {
	events, err := client.ListEventsMinimal(ctx, calendarID, timeMin, timeMax)
	if err != nil {
		return nil, err
	}

	marker := Marker(businessID)
	res := &BackfillResult{}
	for _, ev := range events {
		res.Scanned++
		if HasMarker(ev.Description) || ev.Status == "cancelled" {
			continue
		}
		res.Eligible++

		description := ev.Description
		if description != "" {
			description += "\n"
		}
		description += marker
		if err := client.PatchEventDescription(ctx, calendarID, ev.ID, description); err != nil {
			res.Errors++
			log.Warn("backfill patch failed",
				zap.String("business_id", businessID),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			continue
		}
		res.Patched++
	}
	return res, nil
}
