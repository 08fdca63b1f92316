// Package handler exposes the retention API over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gymops_backend/internal/retention/repository"
	"gymops_backend/internal/retention/service"
	"gymops_backend/internal/retention/transport"
	"gymops_backend/platform/httpkit"
	"gymops_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidTaskID    = "invalid task ID"
	msgInvalidMemberID  = "invalid member ID"
)

// Handler handles HTTP requests for the retention module.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new retention handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Recompute rescores all active members and dispatches follow-up tasks.
// POST /api/v1/retention/recompute
func (h *Handler) Recompute(c *gin.Context) {
	result, err := h.svc.RecomputeAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Overview returns the retention dashboard counters.
// GET /api/v1/retention/overview
func (h *Handler) Overview(c *gin.Context) {
	overview, err := h.svc.GetOverview(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewOverviewResponse(overview))
}

// ListMembers lists member risk snapshots, optionally filtered by level.
// GET /api/v1/retention/members
func (h *Handler) ListMembers(c *gin.Context) {
	var req transport.ListMembersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	risks, err := h.svc.ListMemberRisks(c.Request.Context(), repository.RiskFilter{
		Level:    req.Level,
		MinScore: req.MinScore,
		Search:   req.Search,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewMemberRiskListResponse(risks))
}

// GetMember returns one member's risk snapshot.
// GET /api/v1/retention/members/:id
func (h *Handler) GetMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMemberID, nil)
		return
	}

	risk, err := h.svc.GetMemberRisk(c.Request.Context(), memberID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewMemberRiskResponse(risk))
}

// ListMemberTasks lists all follow-up tasks for one member.
// GET /api/v1/retention/members/:id/tasks
func (h *Handler) ListMemberTasks(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMemberID, nil)
		return
	}

	tasks, err := h.svc.ListMemberTasks(c.Request.Context(), memberID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewTaskListResponse(tasks))
}

// ListTasks lists follow-up tasks with optional filters.
// GET /api/v1/retention/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	var req transport.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), repository.TaskFilter{
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedToID: req.AssignedToID,
		MemberID:     req.MemberID,
		Limit:        req.Limit,
		Offset:       req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewTaskListResponse(tasks))
}

// GetTask returns one follow-up task.
// GET /api/v1/retention/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	task, err := h.svc.GetTask(c.Request.Context(), taskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewTaskResponse(task))
}

// UpdateTask applies a partial update to one follow-up task.
// PATCH /api/v1/retention/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	var req transport.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	task, err := h.svc.UpdateTask(c.Request.Context(), taskID, req.ToInput(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewTaskResponse(task))
}

// BulkUpdateTasks applies one patch to many follow-up tasks.
// PATCH /api/v1/retention/tasks/bulk
func (h *Handler) BulkUpdateTasks(c *gin.Context) {
	var req transport.BulkUpdateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.svc.BulkUpdateTasks(c.Request.Context(), req.TaskIDs, req.Patch.ToInput(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.BulkUpdateResponse{Updated: updated})
}
