package assign

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPickAssigneeEmpty(t *testing.T) {
	if got := PickAssignee(nil); got != nil {
		t.Fatalf("expected nil for empty candidate list, got %+v", got)
	}
}

func TestPickAssigneeLeastLoaded(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	busy := Candidate{ID: uuid.New(), CreatedAt: base, OpenTaskCount: 5}
	idle := Candidate{ID: uuid.New(), CreatedAt: base.AddDate(0, 6, 0), OpenTaskCount: 1}

	got := PickAssignee([]Candidate{busy, idle})
	if got == nil || got.ID != idle.ID {
		t.Fatalf("expected least-loaded candidate %s, got %+v", idle.ID, got)
	}
}

func TestPickAssigneeTieBreaksOnCreatedAt(t *testing.T) {
	older := Candidate{ID: uuid.New(), CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), OpenTaskCount: 2}
	newer := Candidate{ID: uuid.New(), CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), OpenTaskCount: 2}

	got := PickAssignee([]Candidate{newer, older})
	if got == nil || got.ID != older.ID {
		t.Fatalf("expected earliest-created candidate %s, got %+v", older.ID, got)
	}
}

func TestPickAssigneeTieBreaksOnID(t *testing.T) {
	created := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	a := Candidate{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), CreatedAt: created, OpenTaskCount: 0}
	b := Candidate{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), CreatedAt: created, OpenTaskCount: 0}

	got := PickAssignee([]Candidate{b, a})
	if got == nil || got.ID != a.ID {
		t.Fatalf("expected lexically smallest id %s, got %+v", a.ID, got)
	}
}

func TestPickAssigneeDoesNotMutateInput(t *testing.T) {
	created := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	in := []Candidate{
		{ID: uuid.New(), CreatedAt: created, OpenTaskCount: 9},
		{ID: uuid.New(), CreatedAt: created, OpenTaskCount: 1},
	}
	first := in[0].ID

	PickAssignee(in)
	if in[0].ID != first {
		t.Fatalf("input slice was reordered")
	}
}
