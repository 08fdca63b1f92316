// Package assign selects which staff member receives a new follow-up task.
package assign

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is a staff user eligible to receive follow-up tasks.
type Candidate struct {
	ID            uuid.UUID
	FullName      string
	CreatedAt     time.Time
	OpenTaskCount int
}

// PickAssignee returns the least-loaded candidate. Ties break on the
// earliest account creation, then on the lexicographically smallest id.
// Returns nil when no candidates exist.
func PickAssignee(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.OpenTaskCount != b.OpenTaskCount {
			return a.OpenTaskCount < b.OpenTaskCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	pick := sorted[0]
	return &pick
}
