// Package scoring computes churn-risk scores for gym members.
// Score is a pure function over a member's activity signals; it performs
// no I/O and returns the same result for the same inputs.
package scoring

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies a member's churn risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Reason identifies a condition that contributed points to a risk score.
type Reason string

const (
	ReasonNoCheckInHistory   Reason = "NO_CHECKIN_HISTORY"
	ReasonNoCheckIn14Days    Reason = "NO_CHECKIN_14_DAYS"
	ReasonSubscriptionEnding Reason = "SUBSCRIPTION_ENDING_7_DAYS"
	ReasonPendingPayments    Reason = "HAS_PENDING_PAYMENTS"
	ReasonRejectedPayment    Reason = "RECENT_REJECTED_PAYMENT"
)

const (
	// Point weights per signal. Check-in points are awarded at most once:
	// a member with no history never also counts as 14-days stale.
	pointsNoCheckIn          = 50
	pointsSubscriptionEnding = 25
	pointsPendingPayments    = 20
	pointsRejectedPayment    = 15

	checkInStaleDays = 14
	expiryWindowDays = 7

	thresholdHigh   = 60
	thresholdMedium = 30
)

// SignalBundle is the per-member activity snapshot read from the store.
type SignalBundle struct {
	MemberID                 uuid.UUID
	FullName                 string
	Email                    string
	LastCheckInAt            *time.Time
	SubscriptionEndsAt       *time.Time
	UnpaidPendingCount       int
	HasRecentRejectedPayment bool
}

// Snapshot is the computed risk for one member at one point in time.
// Persistence timestamps are filled in by the caller.
type Snapshot struct {
	Score            int
	Level            RiskLevel
	Reasons          []Reason
	DaysSinceCheckIn *int
}

// Score maps a signal bundle to a risk snapshot.
// Reasons preserve the order points were added.
func Score(sig SignalBundle, now time.Time) Snapshot {
	score := 0
	reasons := make([]Reason, 0, 4)
	var daysSince *int

	if sig.LastCheckInAt == nil {
		score += pointsNoCheckIn
		reasons = append(reasons, ReasonNoCheckInHistory)
	} else {
		// A check-in timestamped ahead of now counts as zero days ago.
		days := wholeDays(now.Sub(*sig.LastCheckInAt))
		if days < 0 {
			days = 0
		}
		daysSince = &days
		if days >= checkInStaleDays {
			score += pointsNoCheckIn
			reasons = append(reasons, ReasonNoCheckIn14Days)
		}
	}

	if sig.SubscriptionEndsAt != nil {
		until := sig.SubscriptionEndsAt.Sub(now)
		if until >= 0 && wholeDays(until) <= expiryWindowDays {
			score += pointsSubscriptionEnding
			reasons = append(reasons, ReasonSubscriptionEnding)
		}
	}

	if sig.UnpaidPendingCount > 0 {
		score += pointsPendingPayments
		reasons = append(reasons, ReasonPendingPayments)
	}

	if sig.HasRecentRejectedPayment {
		score += pointsRejectedPayment
		reasons = append(reasons, ReasonRejectedPayment)
	}

	score = clampScore(score)

	return Snapshot{
		Score:            score,
		Level:            levelFor(score),
		Reasons:          reasons,
		DaysSinceCheckIn: daysSince,
	}
}

// levelFor maps a clamped score to its risk level.
func levelFor(score int) RiskLevel {
	switch {
	case score >= thresholdHigh:
		return RiskHigh
	case score >= thresholdMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// wholeDays floors a non-negative duration to whole days.
func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
