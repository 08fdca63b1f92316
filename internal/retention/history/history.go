// Package history records before/after audits for follow-up task updates.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Fields holds the audited subset of a task's state.
type Fields struct {
	Status       string
	Priority     int
	AssignedToID *uuid.UUID
	Note         *string
	DueDate      *time.Time
}

// Entry is one audit row: the full old and new field sets, recorded
// together even for fields that did not change.
type Entry struct {
	OldStatus       string
	NewStatus       string
	OldPriority     int
	NewPriority     int
	OldAssignedToID *uuid.UUID
	NewAssignedToID *uuid.UUID
	OldNote         *string
	NewNote         *string
	OldDueDate      *time.Time
	NewDueDate      *time.Time
}

// Diff compares two field sets. The boolean is false when nothing
// changed, in which case no audit row should be written.
func Diff(old, updated Fields) (Entry, bool) {
	changed := old.Status != updated.Status ||
		old.Priority != updated.Priority ||
		!uuidPtrEqual(old.AssignedToID, updated.AssignedToID) ||
		!strPtrEqual(old.Note, updated.Note) ||
		!timePtrEqual(old.DueDate, updated.DueDate)

	if !changed {
		return Entry{}, false
	}

	return Entry{
		OldStatus:       old.Status,
		NewStatus:       updated.Status,
		OldPriority:     old.Priority,
		NewPriority:     updated.Priority,
		OldAssignedToID: old.AssignedToID,
		NewAssignedToID: updated.AssignedToID,
		OldNote:         old.Note,
		NewNote:         updated.Note,
		OldDueDate:      old.DueDate,
		NewDueDate:      updated.DueDate,
	}, true
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
