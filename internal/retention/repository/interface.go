package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task statuses as stored in retention_tasks.status.
const (
	TaskStatusOpen       = "OPEN"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
	TaskStatusDismissed  = "DISMISSED"
)

// MemberSignals is the raw per-member activity snapshot the scorer consumes.
type MemberSignals struct {
	MemberID                 uuid.UUID
	FullName                 string
	Email                    string
	LastCheckInAt            *time.Time
	SubscriptionEndsAt       *time.Time
	PendingPaymentCount      int
	HasRecentRejectedPayment bool
}

// MemberRisk is a persisted risk snapshot for one member. The signal
// fields record the inputs the score was derived from.
type MemberRisk struct {
	MemberID           uuid.UUID  `db:"member_id"`
	FullName           string     `db:"full_name"`
	Email              string     `db:"email"`
	Score              int        `db:"score"`
	Level              string     `db:"level"`
	Reasons            []string   `db:"reasons"`
	DaysSinceCheckIn   *int       `db:"days_since_checkin"`
	LastCheckInAt      *time.Time `db:"last_check_in_at"`
	SubscriptionEndsAt *time.Time `db:"subscription_ends_at"`
	UnpaidPendingCount int        `db:"unpaid_pending_count"`
	ComputedAt         time.Time  `db:"computed_at"`
}

// UpsertRiskParams contains the fields written on every recompute.
type UpsertRiskParams struct {
	MemberID           uuid.UUID
	Score              int
	Level              string
	Reasons            []string
	DaysSinceCheckIn   *int
	LastCheckInAt      *time.Time
	SubscriptionEndsAt *time.Time
	UnpaidPendingCount int
	ComputedAt         time.Time
}

// Task represents a follow-up task for a member.
type Task struct {
	ID           uuid.UUID  `db:"id"`
	MemberID     uuid.UUID  `db:"member_id"`
	MemberName   string     `db:"member_name"`
	Title        string     `db:"title"`
	Note         *string    `db:"note"`
	Status       string     `db:"status"`
	Priority     int        `db:"priority"`
	AssignedToID *uuid.UUID `db:"assigned_to_id"`
	DueDate      *time.Time `db:"due_date"`
	ResolvedAt   *time.Time `db:"resolved_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// CreateTaskParams contains parameters for opening a follow-up task.
type CreateTaskParams struct {
	MemberID     uuid.UUID
	Title        string
	Note         *string
	Status       string
	Priority     int
	AssignedToID *uuid.UUID
	DueDate      *time.Time
}

// UpdateTaskParams contains a partial task update. Nil pointers leave the
// column untouched. ResolvedAt is three-state: it is only written when
// SetResolvedAt is true, so DONE can stamp it and other statuses can clear it.
type UpdateTaskParams struct {
	Status        *string
	Priority      *int
	AssignedToID  *uuid.UUID
	Note          *string
	DueDate       *time.Time
	ResolvedAt    *time.Time
	SetResolvedAt bool
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status       *string
	Priority     *int
	AssignedToID *uuid.UUID
	MemberID     *uuid.UUID
	Limit        int
	Offset       int
}

// RiskFilter narrows member risk listings.
type RiskFilter struct {
	Level    *string
	MinScore *int
	Search   *string
	Limit    int
	Offset   int
}

// StaffCandidate is an active ADMIN or STAFF user eligible for task
// assignment, with the count of tasks currently on their plate.
type StaffCandidate struct {
	ID            uuid.UUID
	FullName      string
	CreatedAt     time.Time
	OpenTaskCount int
}

// HistoryParams is one audit row for a task update.
type HistoryParams struct {
	TaskID          uuid.UUID
	ChangedByID     *uuid.UUID
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

// Overview aggregates the retention dashboard counters.
type Overview struct {
	ActiveMembers   int
	HighRisk        int
	MediumRisk      int
	LowRisk         int
	OpenTasks       int
	InProgressTasks int
	OverdueTasks    int
}

// RiskReader provides read access to persisted risk snapshots.
type RiskReader interface {
	ListMemberRisks(ctx context.Context, filter RiskFilter) ([]MemberRisk, error)
	GetMemberRisk(ctx context.Context, memberID uuid.UUID) (MemberRisk, error)
	GetOverview(ctx context.Context, now time.Time) (Overview, error)
}

// RiskWriter persists recompute results.
type RiskWriter interface {
	ListActiveMemberSignals(ctx context.Context, rejectedSince time.Time) ([]MemberSignals, error)
	UpsertMemberRisk(ctx context.Context, params UpsertRiskParams) error
}

// TaskReader provides read access to follow-up tasks.
type TaskReader interface {
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	ListTasksByIDs(ctx context.Context, ids []uuid.UUID) ([]Task, error)
	ListMemberTasks(ctx context.Context, memberID uuid.UUID) ([]Task, error)
	HasOpenTask(ctx context.Context, memberID uuid.UUID) (bool, error)
	HasRecentlyResolvedTask(ctx context.Context, memberID uuid.UUID, cutoff time.Time) (bool, error)
	ListStaffCandidates(ctx context.Context) ([]StaffCandidate, error)
	IsAssignableUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TaskWriter mutates follow-up tasks and their audit trail.
type TaskWriter interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (Task, error)
	BulkUpdateTasks(ctx context.Context, ids []uuid.UUID, params UpdateTaskParams) (int64, error)
	InsertTaskHistory(ctx context.Context, params HistoryParams) error
}

// Repository is the full persistence surface for the retention module.
type Repository interface {
	RiskReader
	RiskWriter
	TaskReader
	TaskWriter
}
