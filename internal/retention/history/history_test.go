package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDiffNoChange(t *testing.T) {
	assignee := uuid.New()
	note := "call after 6pm"
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	f := Fields{Status: "OPEN", Priority: 1, AssignedToID: &assignee, Note: &note, DueDate: &due}
	sameDue := due.In(time.FixedZone("CET", 3600))
	g := f
	g.DueDate = &sameDue

	if _, changed := Diff(f, g); changed {
		t.Fatalf("identical fields (different due-date zones) must not produce an entry")
	}
}

func TestDiffSingleFieldChange(t *testing.T) {
	old := Fields{Status: "OPEN", Priority: 1}
	updated := Fields{Status: "OPEN", Priority: 3}

	entry, changed := Diff(old, updated)
	if !changed {
		t.Fatalf("priority change must produce an entry")
	}
	if entry.OldPriority != 1 || entry.NewPriority != 3 {
		t.Fatalf("expected priority 1 -> 3, got %d -> %d", entry.OldPriority, entry.NewPriority)
	}
	// Unchanged fields are still captured in full.
	if entry.OldStatus != "OPEN" || entry.NewStatus != "OPEN" {
		t.Fatalf("expected unchanged status recorded on both sides")
	}
}

func TestDiffNilVsSetPointers(t *testing.T) {
	note := "left voicemail"
	old := Fields{Status: "OPEN", Priority: 1}
	updated := Fields{Status: "OPEN", Priority: 1, Note: &note}

	entry, changed := Diff(old, updated)
	if !changed {
		t.Fatalf("nil -> set note must produce an entry")
	}
	if entry.OldNote != nil || entry.NewNote == nil || *entry.NewNote != note {
		t.Fatalf("expected note nil -> %q, got %v -> %v", note, entry.OldNote, entry.NewNote)
	}
}

func TestDiffAssigneeChange(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	old := Fields{Status: "IN_PROGRESS", Priority: 2, AssignedToID: &a}
	updated := Fields{Status: "IN_PROGRESS", Priority: 2, AssignedToID: &b}

	entry, changed := Diff(old, updated)
	if !changed {
		t.Fatalf("assignee change must produce an entry")
	}
	if *entry.OldAssignedToID != a || *entry.NewAssignedToID != b {
		t.Fatalf("expected assignee %s -> %s", a, b)
	}
}
