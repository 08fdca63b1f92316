// Package transport defines the request and response shapes for the
// retention API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"gymops_backend/internal/retention/repository"
	"gymops_backend/internal/retention/service"
)

// UpdateTaskRequest is a partial task update. Omitted fields stay as
// they are.
type UpdateTaskRequest struct {
	Status       *string    `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE DISMISSED"`
	Priority     *int       `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	AssignedToID *uuid.UUID `json:"assignedToId,omitempty"`
	Note         *string    `json:"note,omitempty" validate:"omitempty,max=2000"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

// ToInput maps the request to the service-layer patch.
func (r UpdateTaskRequest) ToInput() service.UpdateTaskInput {
	return service.UpdateTaskInput{
		Status:       r.Status,
		Priority:     r.Priority,
		AssignedToID: r.AssignedToID,
		Note:         r.Note,
		DueDate:      r.DueDate,
	}
}

// BulkUpdateTasksRequest applies one patch to many tasks.
type BulkUpdateTasksRequest struct {
	TaskIDs []uuid.UUID       `json:"taskIds" validate:"required,min=1,max=100"`
	Patch   UpdateTaskRequest `json:"patch"`
}

// ListTasksRequest narrows the task listing.
type ListTasksRequest struct {
	Status       *string    `form:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE DISMISSED"`
	Priority     *int       `form:"priority" validate:"omitempty,min=1,max=5"`
	AssignedToID *uuid.UUID `form:"assignedTo"`
	MemberID     *uuid.UUID `form:"memberId"`
	Limit        int        `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset       int        `form:"offset" validate:"omitempty,min=0"`
}

// ListMembersRequest narrows the member risk listing.
type ListMembersRequest struct {
	Level    *string `form:"level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	MinScore *int    `form:"minScore" validate:"omitempty,min=0,max=100"`
	Search   *string `form:"search" validate:"omitempty,max=200"`
	Limit    int     `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int     `form:"offset" validate:"omitempty,min=0"`
}

// TaskResponse represents a follow-up task in API responses.
type TaskResponse struct {
	ID           uuid.UUID  `json:"id"`
	MemberID     uuid.UUID  `json:"memberId"`
	MemberName   string     `json:"memberName"`
	Title        string     `json:"title"`
	Note         *string    `json:"note,omitempty"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	AssignedToID *uuid.UUID `json:"assignedToId,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewTaskResponse maps a repository task to its API shape.
func NewTaskResponse(t repository.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		MemberID:     t.MemberID,
		MemberName:   t.MemberName,
		Title:        t.Title,
		Note:         t.Note,
		Status:       t.Status,
		Priority:     t.Priority,
		AssignedToID: t.AssignedToID,
		DueDate:      t.DueDate,
		ResolvedAt:   t.ResolvedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
	Total int            `json:"total"`
}

// NewTaskListResponse maps repository tasks to the list shape.
func NewTaskListResponse(tasks []repository.Task) TaskListResponse {
	items := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = NewTaskResponse(t)
	}
	return TaskListResponse{Items: items, Total: len(items)}
}

// BulkUpdateResponse reports how many tasks a bulk patch touched.
type BulkUpdateResponse struct {
	Updated int64 `json:"updated"`
}

// MemberRiskResponse represents one member's risk snapshot.
type MemberRiskResponse struct {
	MemberID           uuid.UUID  `json:"memberId"`
	FullName           string     `json:"fullName"`
	Email              string     `json:"email"`
	Score              int        `json:"score"`
	Level              string     `json:"level"`
	Reasons            []string   `json:"reasons"`
	DaysSinceCheckIn   *int       `json:"daysSinceCheckIn,omitempty"`
	LastCheckInAt      *time.Time `json:"lastCheckInAt,omitempty"`
	SubscriptionEndsAt *time.Time `json:"subscriptionEndsAt,omitempty"`
	UnpaidPendingCount int        `json:"unpaidPendingCount"`
	ComputedAt         time.Time  `json:"computedAt"`
}

// NewMemberRiskResponse maps a repository risk row to its API shape.
func NewMemberRiskResponse(r repository.MemberRisk) MemberRiskResponse {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return MemberRiskResponse{
		MemberID:           r.MemberID,
		FullName:           r.FullName,
		Email:              r.Email,
		Score:              r.Score,
		Level:              r.Level,
		Reasons:            reasons,
		DaysSinceCheckIn:   r.DaysSinceCheckIn,
		LastCheckInAt:      r.LastCheckInAt,
		SubscriptionEndsAt: r.SubscriptionEndsAt,
		UnpaidPendingCount: r.UnpaidPendingCount,
		ComputedAt:         r.ComputedAt,
	}
}

// MemberRiskListResponse wraps a list of member risk snapshots.
type MemberRiskListResponse struct {
	Items []MemberRiskResponse `json:"items"`
	Total int                  `json:"total"`
}

// NewMemberRiskListResponse maps repository risk rows to the list shape.
func NewMemberRiskListResponse(risks []repository.MemberRisk) MemberRiskListResponse {
	items := make([]MemberRiskResponse, len(risks))
	for i, r := range risks {
		items[i] = NewMemberRiskResponse(r)
	}
	return MemberRiskListResponse{Items: items, Total: len(items)}
}

// OverviewResponse aggregates the retention dashboard counters.
type OverviewResponse struct {
	ActiveMembers   int `json:"activeMembers"`
	HighRisk        int `json:"highRisk"`
	MediumRisk      int `json:"mediumRisk"`
	LowRisk         int `json:"lowRisk"`
	OpenTasks       int `json:"openTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	OverdueTasks    int `json:"overdueTasks"`
}

// NewOverviewResponse maps the repository overview to its API shape.
func NewOverviewResponse(o repository.Overview) OverviewResponse {
	return OverviewResponse{
		ActiveMembers:   o.ActiveMembers,
		HighRisk:        o.HighRisk,
		MediumRisk:      o.MediumRisk,
		LowRisk:         o.LowRisk,
		OpenTasks:       o.OpenTasks,
		InProgressTasks: o.InProgressTasks,
		OverdueTasks:    o.OverdueTasks,
	}
}
