// Package notification reacts to retention domain events by fanning out
// in-app notifications and best-effort emails. Domain modules publish
// events and never talk to mail or notification storage directly.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymops_backend/internal/auth"
	"gymops_backend/internal/email"
	"gymops_backend/internal/events"
	apphttp "gymops_backend/internal/http"
	notifhandler "gymops_backend/internal/notification/handler"
	"gymops_backend/internal/notification/inapp"
	"gymops_backend/platform/config"
	"gymops_backend/platform/logger"
)

const resourceTypeTask = "retention_task"

// Module handles all notification-related event subscriptions.
type Module struct {
	inApp     *inapp.Service
	handler   *notifhandler.Handler
	directory auth.Directory
	sender    email.Sender
	cfg       config.NotificationConfig
	log       *logger.Logger
}

// NewModule creates the notification module with its dependencies.
func NewModule(pool *pgxpool.Pool, directory auth.Directory, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	svc := inapp.NewService(inapp.NewRepository(pool), log)

	return &Module{
		inApp:     svc,
		handler:   notifhandler.New(svc),
		directory: directory,
		sender:    sender,
		cfg:       cfg,
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	group.GET("", m.handler.List)
	group.GET("/unread-count", m.handler.UnreadCount)
	group.POST("/:id/read", m.handler.MarkRead)
	group.POST("/read-all", m.handler.MarkAllRead)
}

// RegisterHandlers subscribes to the retention domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.TopicRetentionTaskCreated, m)
	bus.Subscribe(events.TopicRetentionTaskCompleted, m)
	bus.Subscribe(events.TopicRetentionTasksBulkResolved, m)
	bus.Subscribe(events.TopicRiskRecomputeCompleted, m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.RetentionTaskCreated:
		return m.handleTaskCreated(ctx, e)
	case events.RetentionTaskCompleted:
		return m.handleTaskCompleted(ctx, e)
	case events.RetentionTasksBulkResolved:
		return m.handleTasksBulkResolved(ctx, e)
	case events.RiskRecomputeCompleted:
		return m.handleRecomputeCompleted(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleTaskCreated(ctx context.Context, e events.RetentionTaskCreated) error {
	taskID := e.TaskID
	content := fmt.Sprintf("%s is at high risk of churning. Follow up before %s.",
		e.MemberName, e.DueDate.Format("Mon 2 Jan"))

	if e.AssignedToID != nil {
		if err := m.inApp.Send(ctx, inapp.SendParams{
			UserID:       *e.AssignedToID,
			Title:        "New follow-up task",
			Content:      content,
			ResourceID:   &taskID,
			ResourceType: resourceTypeTask,
			Category:     "warning",
		}); err != nil {
			return err
		}
	}

	if err := m.notifyRole(ctx, auth.RoleAdmin, e.AssignedToID, inapp.SendParams{
		Title:        "Follow-up task opened",
		Content:      content,
		ResourceID:   &taskID,
		ResourceType: resourceTypeTask,
		Category:     "info",
	}); err != nil {
		return err
	}

	// Email delivery is best effort and must not fail the event.
	if alertEmail := m.cfg.GetAdminAlertEmail(); alertEmail != "" {
		taskURL := fmt.Sprintf("%s/retention/tasks/%s", m.cfg.GetAppBaseURL(), e.TaskID)
		if err := m.sender.SendFollowUpTaskEmail(ctx, alertEmail, e.MemberName, taskURL); err != nil {
			m.log.Error("follow-up alert email failed", "error", err, "task_id", e.TaskID)
		}
	}

	return nil
}

func (m *Module) handleTaskCompleted(ctx context.Context, e events.RetentionTaskCompleted) error {
	taskID := e.TaskID
	return m.notifyRole(ctx, auth.RoleAdmin, &e.CompletedByID, inapp.SendParams{
		Title:        "Follow-up task completed",
		Content:      "A high-risk member follow-up was marked done.",
		ResourceID:   &taskID,
		ResourceType: resourceTypeTask,
		Category:     "success",
	})
}

func (m *Module) handleTasksBulkResolved(ctx context.Context, e events.RetentionTasksBulkResolved) error {
	return m.notifyRole(ctx, auth.RoleAdmin, &e.CompletedByID, inapp.SendParams{
		Title:    "Follow-up tasks completed",
		Content:  fmt.Sprintf("%d follow-up tasks were marked done in one update.", len(e.TaskIDs)),
		Category: "success",
	})
}

func (m *Module) handleRecomputeCompleted(ctx context.Context, e events.RiskRecomputeCompleted) error {
	content := fmt.Sprintf("Scored %d members: %d high, %d medium, %d low. %d follow-up tasks opened.",
		e.Processed, e.High, e.Medium, e.Low, e.TasksOpened)

	if err := m.notifyRole(ctx, auth.RoleAdmin, nil, inapp.SendParams{
		Title:    "Retention recompute finished",
		Content:  content,
		Category: "info",
	}); err != nil {
		return err
	}

	if alertEmail := m.cfg.GetAdminAlertEmail(); alertEmail != "" {
		summary := email.RecomputeSummary{
			DashboardURL: m.cfg.GetAppBaseURL() + "/retention/overview",
			Processed:    e.Processed,
			High:         e.High,
			Medium:       e.Medium,
			Low:          e.Low,
			TasksCreated: e.TasksOpened,
		}
		if err := m.sender.SendRecomputeSummaryEmail(ctx, alertEmail, summary); err != nil {
			m.log.Error("recompute summary email failed", "error", err)
		}
	}

	return nil
}

// notifyRole sends the same notification to every active user holding
// the role, skipping the excluded user to avoid double delivery.
func (m *Module) notifyRole(ctx context.Context, role string, exclude *uuid.UUID, params inapp.SendParams) error {
	users, err := m.directory.ListActiveUsersByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("list %s users: %w", role, err)
	}

	for _, u := range users {
		if exclude != nil && u.ID == *exclude {
			continue
		}
		params.UserID = u.ID
		if err := m.inApp.Send(ctx, params); err != nil {
			return err
		}
	}

	return nil
}

// Compile-time checks.
var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
