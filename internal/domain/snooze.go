package domain

import (
	"fmt"
	"time"
)

type SnoozeDuration string

const (
	Snooze1Week   SnoozeDuration = "1-week"
	Snooze1Month  SnoozeDuration = "1-month"
	Snooze3Months SnoozeDuration = "3-months"
	Snooze6Months SnoozeDuration = "6-months"
	Snooze1Year   SnoozeDuration = "1-year"
	SnoozeForever SnoozeDuration = "forever"
)

// foreverYears is the far-future sentinel for "forever". Keeping it a
// timestamp means every snooze comparison uses the same code path.
const foreverYears = 100

// Until resolves a snooze duration to its expiry instant.
func (d SnoozeDuration) Until(now time.Time) (time.Time, error) {
	switch d {
	case Snooze1Week:
		return now.AddDate(0, 0, 7), nil
	case Snooze1Month:
		return now.AddDate(0, 1, 0), nil
	case Snooze3Months:
		return now.AddDate(0, 3, 0), nil
	case Snooze6Months:
		return now.AddDate(0, 6, 0), nil
	case Snooze1Year:
		return now.AddDate(1, 0, 0), nil
	case SnoozeForever:
		return now.AddDate(foreverYears, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown snooze duration %q", d)
	}
}

func ParseSnoozeDuration(s string) (SnoozeDuration, error) {
	d := SnoozeDuration(s)
	if _, err := d.Until(time.Unix(0, 0)); err != nil {
		return "", err
	}
	return d, nil
}
