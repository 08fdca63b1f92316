package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func daysAhead(n int) *time.Time {
	t := testNow.AddDate(0, 0, n)
	return &t
}

func TestScoreNoCheckInHistory(t *testing.T) {
	snap := Score(SignalBundle{MemberID: uuid.New()}, testNow)

	if snap.Score != 50 {
		t.Fatalf("expected score 50, got %d", snap.Score)
	}
	if snap.Level != RiskMedium {
		t.Fatalf("expected MEDIUM, got %s", snap.Level)
	}
	if len(snap.Reasons) != 1 || snap.Reasons[0] != ReasonNoCheckInHistory {
		t.Fatalf("expected single NO_CHECKIN_HISTORY reason, got %v", snap.Reasons)
	}
	if snap.DaysSinceCheckIn != nil {
		t.Fatalf("expected nil days since check-in, got %d", *snap.DaysSinceCheckIn)
	}
}

func TestScoreCheckInReasonsAreExclusive(t *testing.T) {
	snap := Score(SignalBundle{LastCheckInAt: daysAgo(30)}, testNow)

	if snap.Score != 50 {
		t.Fatalf("expected score 50, got %d", snap.Score)
	}
	for _, r := range snap.Reasons {
		if r == ReasonNoCheckInHistory {
			t.Fatalf("stale check-in must not also report missing history: %v", snap.Reasons)
		}
	}
	if len(snap.Reasons) != 1 || snap.Reasons[0] != ReasonNoCheckIn14Days {
		t.Fatalf("expected single NO_CHECKIN_14_DAYS reason, got %v", snap.Reasons)
	}
	if snap.DaysSinceCheckIn == nil || *snap.DaysSinceCheckIn != 30 {
		t.Fatalf("expected 30 days since check-in, got %v", snap.DaysSinceCheckIn)
	}
}

func TestScoreCheckInBoundary(t *testing.T) {
	fresh := Score(SignalBundle{LastCheckInAt: daysAgo(13)}, testNow)
	if fresh.Score != 0 || fresh.Level != RiskLow {
		t.Fatalf("13-day gap should score 0/LOW, got %d/%s", fresh.Score, fresh.Level)
	}

	stale := Score(SignalBundle{LastCheckInAt: daysAgo(14)}, testNow)
	if stale.Score != 50 {
		t.Fatalf("14-day gap should score 50, got %d", stale.Score)
	}
}

func TestScoreFutureCheckInClampsToZeroDays(t *testing.T) {
	snap := Score(SignalBundle{LastCheckInAt: daysAhead(3)}, testNow)

	if snap.Score != 0 || snap.Level != RiskLow {
		t.Fatalf("future check-in should score 0/LOW, got %d/%s", snap.Score, snap.Level)
	}
	if snap.DaysSinceCheckIn == nil || *snap.DaysSinceCheckIn != 0 {
		t.Fatalf("expected 0 days since check-in, got %v", snap.DaysSinceCheckIn)
	}
}

func TestScoreSubscriptionWindow(t *testing.T) {
	cases := []struct {
		name   string
		endsAt *time.Time
		want   int
	}{
		{"ends today", daysAhead(0), 25},
		{"ends in 7 days", daysAhead(7), 25},
		{"ends in 8 days", daysAhead(8), 0},
		{"already ended", daysAgo(1), 0},
		{"no subscription", nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Score(SignalBundle{LastCheckInAt: daysAgo(1), SubscriptionEndsAt: tc.endsAt}, testNow)
			if snap.Score != tc.want {
				t.Fatalf("expected score %d, got %d", tc.want, snap.Score)
			}
		})
	}
}

func TestScorePaymentSignals(t *testing.T) {
	snap := Score(SignalBundle{
		LastCheckInAt:            daysAgo(2),
		UnpaidPendingCount:       3,
		HasRecentRejectedPayment: true,
	}, testNow)

	if snap.Score != 35 {
		t.Fatalf("expected score 35, got %d", snap.Score)
	}
	if snap.Level != RiskMedium {
		t.Fatalf("expected MEDIUM, got %s", snap.Level)
	}
	want := []Reason{ReasonPendingPayments, ReasonRejectedPayment}
	if len(snap.Reasons) != len(want) {
		t.Fatalf("expected reasons %v, got %v", want, snap.Reasons)
	}
	for i := range want {
		if snap.Reasons[i] != want[i] {
			t.Fatalf("expected reasons %v, got %v", want, snap.Reasons)
		}
	}
}

func TestScoreLevelThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{29, RiskLow},
		{30, RiskMedium},
		{59, RiskMedium},
		{60, RiskHigh},
		{100, RiskHigh},
	}
	for _, tc := range cases {
		if got := levelFor(tc.score); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestScoreAllSignalsSumAndClamp(t *testing.T) {
	snap := Score(SignalBundle{
		SubscriptionEndsAt:       daysAhead(3),
		UnpaidPendingCount:       1,
		HasRecentRejectedPayment: true,
	}, testNow)

	if snap.Score != 100 {
		t.Fatalf("expected score 100, got %d", snap.Score)
	}
	if snap.Level != RiskHigh {
		t.Fatalf("expected HIGH, got %s", snap.Level)
	}
	if len(snap.Reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %v", snap.Reasons)
	}
}

func TestScoreHighBoundaryCombination(t *testing.T) {
	// 50 + 15 = 65 crosses the HIGH threshold.
	snap := Score(SignalBundle{HasRecentRejectedPayment: true}, testNow)
	if snap.Score != 65 || snap.Level != RiskHigh {
		t.Fatalf("expected 65/HIGH, got %d/%s", snap.Score, snap.Level)
	}
}
