package service

import (
	"context"
	"fmt"
	"time"

	"gymops_backend/internal/events"
	"gymops_backend/internal/retention/assign"
	"gymops_backend/internal/retention/repository"
)

// dispatchFollowUp opens a follow-up task for a high-risk member unless
// one is already open or one was resolved within the cooldown window.
// Returns true when a task was created.
func (s *Service) dispatchFollowUp(ctx context.Context, member repository.MemberSignals, now time.Time) (bool, error) {
	open, err := s.repo.HasOpenTask(ctx, member.MemberID)
	if err != nil {
		return false, fmt.Errorf("check open task: %w", err)
	}
	if open {
		return false, nil
	}

	recentlyResolved, err := s.repo.HasRecentlyResolvedTask(ctx, member.MemberID, now.Add(-resolvedCooldown))
	if err != nil {
		return false, fmt.Errorf("check resolved cooldown: %w", err)
	}
	if recentlyResolved {
		return false, nil
	}

	candidates, err := s.repo.ListStaffCandidates(ctx)
	if err != nil {
		return false, fmt.Errorf("list staff candidates: %w", err)
	}

	assignees := make([]assign.Candidate, len(candidates))
	for i, c := range candidates {
		assignees[i] = assign.Candidate{
			ID:            c.ID,
			FullName:      c.FullName,
			CreatedAt:     c.CreatedAt,
			OpenTaskCount: c.OpenTaskCount,
		}
	}

	note := followUpNote
	params := repository.CreateTaskParams{
		MemberID: member.MemberID,
		Title:    followUpTitle,
		Note:     &note,
		Status:   repository.TaskStatusOpen,
		Priority: followUpPriority,
	}

	due := now.Add(followUpDueIn)
	params.DueDate = &due

	// An empty staff roster still produces a task, just unassigned.
	if picked := assign.PickAssignee(assignees); picked != nil {
		id := picked.ID
		params.AssignedToID = &id
	}

	task, err := s.repo.CreateTask(ctx, params)
	if err != nil {
		return false, fmt.Errorf("create follow-up task: %w", err)
	}

	s.log.Info("follow-up task created",
		"task_id", task.ID,
		"member_id", member.MemberID,
		"assigned_to", task.AssignedToID,
	)

	s.bus.Publish(ctx, events.RetentionTaskCreated{
		BaseEvent:    events.NewBaseEvent(),
		TaskID:       task.ID,
		MemberID:     member.MemberID,
		MemberName:   member.FullName,
		AssignedToID: task.AssignedToID,
		DueDate:      due,
	})

	return true, nil
}
