package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gymops_backend/internal/events"
	"gymops_backend/internal/retention/history"
	"gymops_backend/internal/retention/repository"
	"gymops_backend/platform/apperr"
)

// UpdateTaskInput is a partial task update from the API. Nil fields are
// left unchanged.
type UpdateTaskInput struct {
	Status       *string
	Priority     *int
	AssignedToID *uuid.UUID
	Note         *string
	DueDate      *time.Time
}

func (in UpdateTaskInput) isEmpty() bool {
	return in.Status == nil && in.Priority == nil && in.AssignedToID == nil &&
		in.Note == nil && in.DueDate == nil
}

func (in UpdateTaskInput) validate() error {
	if in.Status != nil {
		switch *in.Status {
		case repository.TaskStatusOpen, repository.TaskStatusInProgress,
			repository.TaskStatusDone, repository.TaskStatusDismissed:
		default:
			return apperr.Validation(fmt.Sprintf("invalid task status %q", *in.Status))
		}
	}
	if in.Priority != nil && *in.Priority < 1 {
		return apperr.Validation("priority must be at least 1")
	}
	return nil
}

// toParams maps the input to a repository patch, deriving resolved_at
// from the status transition: DONE stamps it, any other explicit status
// clears it, an omitted status leaves it alone.
func (in UpdateTaskInput) toParams(now time.Time) repository.UpdateTaskParams {
	params := repository.UpdateTaskParams{
		Status:       in.Status,
		Priority:     in.Priority,
		AssignedToID: in.AssignedToID,
		Note:         in.Note,
		DueDate:      in.DueDate,
	}
	if in.Status != nil {
		params.SetResolvedAt = true
		if *in.Status == repository.TaskStatusDone {
			resolvedAt := now
			params.ResolvedAt = &resolvedAt
		}
	}
	return params
}

// checkAssignee rejects assignments to users outside the back office.
func (s *Service) checkAssignee(ctx context.Context, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	ok, err := s.repo.IsAssignableUser(ctx, *assigneeID)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !ok {
		return apperr.NotFound("assignee must be ADMIN or STAFF")
	}
	return nil
}

// UpdateTask applies a partial update to one task, records an audit row
// when anything changed, and returns the updated task.
func (s *Service) UpdateTask(ctx context.Context, id uuid.UUID, in UpdateTaskInput, actorID uuid.UUID) (repository.Task, error) {
	if err := in.validate(); err != nil {
		return repository.Task{}, err
	}
	if err := s.checkAssignee(ctx, in.AssignedToID); err != nil {
		return repository.Task{}, err
	}

	old, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return repository.Task{}, err
	}

	updated, err := s.repo.UpdateTask(ctx, id, in.toParams(s.now()))
	if err != nil {
		return repository.Task{}, err
	}

	if err := s.recordHistory(ctx, old, updated, actorID); err != nil {
		return repository.Task{}, err
	}

	if updated.Status == repository.TaskStatusDone {
		s.bus.Publish(ctx, events.RetentionTaskCompleted{
			BaseEvent:     events.NewBaseEvent(),
			TaskID:        updated.ID,
			MemberID:      updated.MemberID,
			CompletedByID: actorID,
		})
	}

	return updated, nil
}

// BulkUpdateTasks applies one patch to many tasks in a single write.
// Audit rows are derived per task from snapshots loaded up front.
// Returns the number of tasks the write touched.
func (s *Service) BulkUpdateTasks(ctx context.Context, ids []uuid.UUID, in UpdateTaskInput, actorID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("task ids are required")
	}
	if in.isEmpty() {
		return 0, apperr.Validation("at least one field to update is required")
	}
	if err := in.validate(); err != nil {
		return 0, err
	}
	if err := s.checkAssignee(ctx, in.AssignedToID); err != nil {
		return 0, err
	}

	snapshots, err := s.repo.ListTasksByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := s.now()
	count, err := s.repo.BulkUpdateTasks(ctx, ids, in.toParams(now))
	if err != nil {
		return 0, err
	}

	updatedIDs := make([]uuid.UUID, 0, len(snapshots))
	for _, old := range snapshots {
		projected := applyPatch(old, in, now)
		if err := s.recordHistory(ctx, old, projected, actorID); err != nil {
			return count, err
		}
		updatedIDs = append(updatedIDs, old.ID)
	}

	// The aggregate notification reports every row the write touched,
	// already-done tasks included.
	if in.Status != nil && *in.Status == repository.TaskStatusDone && count > 0 {
		s.bus.Publish(ctx, events.RetentionTasksBulkResolved{
			BaseEvent:     events.NewBaseEvent(),
			TaskIDs:       updatedIDs,
			CompletedByID: actorID,
		})
	}

	return count, nil
}

// GetTask returns one task by id.
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (repository.Task, error) {
	return s.repo.GetTask(ctx, id)
}

// ListTasks lists tasks for the back office, optionally filtered.
func (s *Service) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]repository.Task, error) {
	if filter.Status != nil {
		probe := UpdateTaskInput{Status: filter.Status}
		if err := probe.validate(); err != nil {
			return nil, err
		}
	}
	return s.repo.ListTasks(ctx, filter)
}

// recordHistory writes an audit row when old and updated differ.
func (s *Service) recordHistory(ctx context.Context, old, updated repository.Task, actorID uuid.UUID) error {
	entry, changed := history.Diff(taskFields(old), taskFields(updated))
	if !changed {
		return nil
	}

	var changedBy *uuid.UUID
	if actorID != uuid.Nil {
		changedBy = &actorID
	}

	return s.repo.InsertTaskHistory(ctx, repository.HistoryParams{
		TaskID:          old.ID,
		ChangedByID:     changedBy,
		OldStatus:       entry.OldStatus,
		NewStatus:       entry.NewStatus,
		OldPriority:     entry.OldPriority,
		NewPriority:     entry.NewPriority,
		OldAssignedToID: entry.OldAssignedToID,
		NewAssignedToID: entry.NewAssignedToID,
		OldNote:         entry.OldNote,
		NewNote:         entry.NewNote,
		OldDueDate:      entry.OldDueDate,
		NewDueDate:      entry.NewDueDate,
	})
}

func taskFields(t repository.Task) history.Fields {
	return history.Fields{
		Status:       t.Status,
		Priority:     t.Priority,
		AssignedToID: t.AssignedToID,
		Note:         t.Note,
		DueDate:      t.DueDate,
	}
}

// applyPatch projects the post-update state of a task without another
// read, mirroring the COALESCE semantics of the bulk write.
func applyPatch(old repository.Task, in UpdateTaskInput, now time.Time) repository.Task {
	out := old
	if in.Status != nil {
		out.Status = *in.Status
		if *in.Status == repository.TaskStatusDone {
			resolvedAt := now
			out.ResolvedAt = &resolvedAt
		} else {
			out.ResolvedAt = nil
		}
	}
	if in.Priority != nil {
		out.Priority = *in.Priority
	}
	if in.AssignedToID != nil {
		id := *in.AssignedToID
		out.AssignedToID = &id
	}
	if in.Note != nil {
		note := *in.Note
		out.Note = &note
	}
	if in.DueDate != nil {
		due := *in.DueDate
		out.DueDate = &due
	}
	return out
}
