// Package events defines the domain events exchanged between modules.
package events

import (
	"time"

	"github.com/google/uuid"

	"gymops_backend/platform/events"
	"gymops_backend/platform/logger"
)

// Re-exported bus primitives so modules depend on one events package.
type (
	Event       = events.Event
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	Bus         = events.Bus
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent { return events.NewBaseEvent() }

// NewInMemoryBus builds the process-local bus modules publish on.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

const (
	TopicRetentionTaskCreated       = "retention.task.created"
	TopicRetentionTaskCompleted     = "retention.task.completed"
	TopicRetentionTasksBulkResolved = "retention.tasks.bulk_completed"
	TopicRiskRecomputeCompleted     = "retention.recompute.completed"
)

// RetentionTaskCreated fires when the dispatcher opens a follow-up task
// for a high-risk member.
type RetentionTaskCreated struct {
	BaseEvent
	TaskID       uuid.UUID
	MemberID     uuid.UUID
	MemberName   string
	AssignedToID *uuid.UUID
	DueDate      time.Time
}

func (RetentionTaskCreated) EventName() string { return TopicRetentionTaskCreated }

// RetentionTaskCompleted fires when a single follow-up task reaches DONE.
type RetentionTaskCompleted struct {
	BaseEvent
	TaskID        uuid.UUID
	MemberID      uuid.UUID
	CompletedByID uuid.UUID
}

func (RetentionTaskCompleted) EventName() string { return TopicRetentionTaskCompleted }

// RetentionTasksBulkResolved fires when a bulk update moves tasks to DONE.
type RetentionTasksBulkResolved struct {
	BaseEvent
	TaskIDs       []uuid.UUID
	CompletedByID uuid.UUID
}

func (RetentionTasksBulkResolved) EventName() string { return TopicRetentionTasksBulkResolved }

// RiskRecomputeCompleted summarizes a finished recompute batch.
type RiskRecomputeCompleted struct {
	BaseEvent
	Processed   int
	High        int
	Medium      int
	Low         int
	TasksOpened int
}

func (RiskRecomputeCompleted) EventName() string { return TopicRiskRecomputeCompleted }
