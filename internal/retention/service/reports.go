package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gymops_backend/internal/retention/repository"
	"gymops_backend/internal/retention/scoring"
	"gymops_backend/platform/apperr"
)

// GetOverview returns the retention dashboard counters.
func (s *Service) GetOverview(ctx context.Context) (repository.Overview, error) {
	return s.repo.GetOverview(ctx, s.now())
}

// ListMemberRisks lists persisted risk snapshots, optionally filtered
// by level, minimum score, or a name/email search.
func (s *Service) ListMemberRisks(ctx context.Context, filter repository.RiskFilter) ([]repository.MemberRisk, error) {
	if filter.Level != nil {
		switch scoring.RiskLevel(*filter.Level) {
		case scoring.RiskLow, scoring.RiskMedium, scoring.RiskHigh:
		default:
			return nil, apperr.Validation(fmt.Sprintf("invalid risk level %q", *filter.Level))
		}
	}
	return s.repo.ListMemberRisks(ctx, filter)
}

// GetMemberRisk returns one member's latest risk snapshot.
func (s *Service) GetMemberRisk(ctx context.Context, memberID uuid.UUID) (repository.MemberRisk, error) {
	return s.repo.GetMemberRisk(ctx, memberID)
}

// ListMemberTasks lists all follow-up tasks for one member.
func (s *Service) ListMemberTasks(ctx context.Context, memberID uuid.UUID) ([]repository.Task, error) {
	return s.repo.ListMemberTasks(ctx, memberID)
}
