// Package retention provides the retention bounded context module.
// It scores member churn risk and manages the follow-up tasks staff
// work through to keep high-risk members engaged.
package retention

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"gymops_backend/internal/auth"
	"gymops_backend/internal/events"
	apphttp "gymops_backend/internal/http"
	"gymops_backend/internal/retention/handler"
	"gymops_backend/internal/retention/repository"
	"gymops_backend/internal/retention/service"
	"gymops_backend/platform/httpkit"
	"gymops_backend/platform/logger"
	"gymops_backend/platform/validator"
)

// Module is the retention bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the retention module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "retention"
}

// Service returns the service layer for external use (scheduler jobs).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts retention routes on the provided router context.
// All endpoints require an authenticated back-office role.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/retention")
	group.Use(httpkit.RequireAnyRole(auth.RoleAdmin, auth.RoleStaff))

	group.POST("/recompute", m.handler.Recompute)
	group.GET("/overview", m.handler.Overview)
	group.GET("/members", m.handler.ListMembers)
	group.GET("/members/:id", m.handler.GetMember)
	group.GET("/members/:id/tasks", m.handler.ListMemberTasks)
	group.GET("/tasks", m.handler.ListTasks)
	group.GET("/tasks/:id", m.handler.GetTask)
	group.PATCH("/tasks/:id", m.handler.UpdateTask)
	group.PATCH("/tasks/bulk", m.handler.BulkUpdateTasks)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
