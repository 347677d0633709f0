// Package pacing implements the enrollment pacing scheduler: spreading a
// batch of newly qualifying contacts across a bounded set of future calendar
// days restricted to a weekday whitelist.
package pacing

import (
	"time"

	"github.com/agencykit/automation/pkg/models"
)

// DayBucket assigns one calendar day a contiguous index range of the
// enrollment batch. A bucket with StartIndex > EndIndex carries no contacts;
// trailing buckets of a small batch look like that and are still well-formed.
type DayBucket struct {
	Date       time.Time `json:"date"`
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
}

// Size returns the number of contacts in the bucket.
func (b DayBucket) Size() int {
	if b.StartIndex > b.EndIndex {
		return 0
	}

	return b.EndIndex - b.StartIndex + 1
}

// Schedule assigns each of enrolleeCount contacts a future send date. The
// scan starts at the local midnight of now and walks up to twice the spread
// window looking for whitelisted weekdays; when the whitelist yields nothing
// in that window it falls back to plain consecutive days. Time is an
// explicit parameter so bucket boundaries are deterministic under test.
func Schedule(enrolleeCount int, config models.PacingConfig, now time.Time) []DayBucket {
	if !config.Enabled || enrolleeCount == 0 {
		return nil
	}

	spread := config.SpreadOverDays
	if spread < 1 {
		spread = 1
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	validDates := make([]time.Time, 0, spread)

	for offset := 0; offset < 2*spread && len(validDates) < spread; offset++ {
		date := today.AddDate(0, 0, offset)
		if config.AllowsWeekday(date.Weekday()) {
			validDates = append(validDates, date)
		}
	}

	// An empty or unsatisfiable whitelist must not swallow the batch.
	if len(validDates) == 0 {
		for offset := 0; offset < spread; offset++ {
			validDates = append(validDates, today.AddDate(0, 0, offset))
		}
	}

	emailsPerDay := (enrolleeCount + len(validDates) - 1) / len(validDates)

	buckets := make([]DayBucket, 0, len(validDates))

	for i, date := range validDates {
		start := i * emailsPerDay

		end := (i+1)*emailsPerDay - 1
		if end > enrolleeCount-1 {
			end = enrolleeCount - 1
		}

		buckets = append(buckets, DayBucket{
			Date:       date,
			StartIndex: start,
			EndIndex:   end,
		})
	}

	return buckets
}

// DateFor returns the bucket date covering the given batch index, or the
// zero time when no bucket covers it.
func DateFor(buckets []DayBucket, index int) time.Time {
	for _, bucket := range buckets {
		if index >= bucket.StartIndex && index <= bucket.EndIndex {
			return bucket.Date
		}
	}

	return time.Time{}
}
