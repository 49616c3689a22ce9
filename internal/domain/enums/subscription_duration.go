package enums

import "time"

type SubscriptionDuration string

const (
	DurationMonthly    SubscriptionDuration = "monthly"
	DurationQuarterly  SubscriptionDuration = "quarterly"
	DurationHalfYearly SubscriptionDuration = "halfyearly"
	DurationYearly     SubscriptionDuration = "yearly"
)

func ParseSubscriptionDuration(raw string) (SubscriptionDuration, bool) {
	switch SubscriptionDuration(raw) {
	case DurationMonthly, DurationQuarterly, DurationHalfYearly, DurationYearly:
		return SubscriptionDuration(raw), true
	default:
		return "", false
	}
}

func (d SubscriptionDuration) Length() time.Duration {
	switch d {
	case DurationMonthly:
		return 30 * 24 * time.Hour
	case DurationQuarterly:
		return 90 * 24 * time.Hour
	case DurationHalfYearly:
		return 180 * 24 * time.Hour
	case DurationYearly:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}
