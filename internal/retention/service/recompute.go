package service

import (
	"context"
	"fmt"

	"gymops_backend/internal/events"
	"gymops_backend/internal/retention/repository"
	"gymops_backend/internal/retention/scoring"
)

// RecomputeResult summarizes one recompute batch.
type RecomputeResult struct {
	Processed    int `json:"processed"`
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
	TasksCreated int `json:"tasksCreated"`
}

// RecomputeAll rescores every active member and opens follow-up tasks
// for those that come out high risk. Members are processed in order and
// the first failure aborts the batch.
func (s *Service) RecomputeAll(ctx context.Context) (RecomputeResult, error) {
	now := s.now()

	signals, err := s.repo.ListActiveMemberSignals(ctx, now.Add(-rejectedPaymentLookback))
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("load member signals: %w", err)
	}

	var result RecomputeResult
	for _, sig := range signals {
		snap := scoring.Score(scoring.SignalBundle{
			MemberID:                 sig.MemberID,
			FullName:                 sig.FullName,
			Email:                    sig.Email,
			LastCheckInAt:            sig.LastCheckInAt,
			SubscriptionEndsAt:       sig.SubscriptionEndsAt,
			UnpaidPendingCount:       sig.PendingPaymentCount,
			HasRecentRejectedPayment: sig.HasRecentRejectedPayment,
		}, now)

		err := s.repo.UpsertMemberRisk(ctx, repository.UpsertRiskParams{
			MemberID:           sig.MemberID,
			Score:              snap.Score,
			Level:              string(snap.Level),
			Reasons:            reasonStrings(snap.Reasons),
			DaysSinceCheckIn:   snap.DaysSinceCheckIn,
			LastCheckInAt:      sig.LastCheckInAt,
			SubscriptionEndsAt: sig.SubscriptionEndsAt,
			UnpaidPendingCount: sig.PendingPaymentCount,
			ComputedAt:         now,
		})
		if err != nil {
			return result, fmt.Errorf("persist risk for member %s: %w", sig.MemberID, err)
		}

		result.Processed++
		switch snap.Level {
		case scoring.RiskHigh:
			result.High++
		case scoring.RiskMedium:
			result.Medium++
		default:
			result.Low++
		}

		if snap.Level == scoring.RiskHigh {
			created, err := s.dispatchFollowUp(ctx, sig, now)
			if err != nil {
				return result, fmt.Errorf("dispatch follow-up for member %s: %w", sig.MemberID, err)
			}
			if created {
				result.TasksCreated++
			}
		}
	}

	s.log.Info("retention recompute completed",
		"processed", result.Processed,
		"high", result.High,
		"medium", result.Medium,
		"low", result.Low,
		"tasks_created", result.TasksCreated,
	)

	s.bus.Publish(ctx, events.RiskRecomputeCompleted{
		BaseEvent:   events.NewBaseEvent(),
		Processed:   result.Processed,
		High:        result.High,
		Medium:      result.Medium,
		Low:         result.Low,
		TasksOpened: result.TasksCreated,
	})

	return result, nil
}

func reasonStrings(reasons []scoring.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
