package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	orchestrator ports.OrchestratorPort
	registry     ports.DriverRegistryPort
}

func NewHandler(orchestrator ports.OrchestratorPort, registry ports.DriverRegistryPort) *Handler {
	return &Handler{orchestrator: orchestrator, registry: registry}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/workflows", h.StartWorkflow)
	g.GET("/workflows", h.ListWorkflows)
	g.GET("/workflows/:id", h.GetWorkflow)
	g.POST("/workflows/:id/terminate", h.TerminateWorkflow)
	g.POST("/workflows/:id/complete", h.CompleteWorkflow)
	g.POST("/workflows/:id/tasks", h.ScheduleTask)
	g.POST("/workflows/:id/tasks/:taskId/execute", h.ExecuteTask)
	g.POST("/workflows/:id/tasks/:taskId/cancel", h.CancelTask)
	g.GET("/drivers", h.ListDrivers)
}

// StartWorkflow starts a workflow
// (POST /api/v1/workflows)
func (h *Handler) StartWorkflow(c echo.Context) error {
	var req StartWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	id, err := h.orchestrator.StartWorkflow(c.Request().Context(), req.Name, req.Version, req.Input,
		req.CorrelationID, req.ParentWorkflowID, req.ParentTaskID, req.Event)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, StartWorkflowResponse{ID: id})
}

// ListWorkflows lists workflows, optionally filtered by ?status=A,B and ?parent=ID
// (GET /api/v1/workflows)
func (h *Handler) ListWorkflows(c echo.Context) error {
	var filter domain.WorkflowFilter
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := domain.WorkflowStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !status.Valid() {
				return echo.NewHTTPError(http.StatusBadRequest, "unknown workflow status: "+s)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.ParentID = c.QueryParam("parent")

	workflows, err := h.orchestrator.ListWorkflows(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}
	if workflows == nil {
		workflows = []*domain.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// GetWorkflow returns one workflow, with its tasks when ?include_tasks=true
// (GET /api/v1/workflows/:id)
func (h *Handler) GetWorkflow(c echo.Context) error {
	includeTasks := false
	if raw := c.QueryParam("include_tasks"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "include_tasks must be a boolean")
		}
		includeTasks = parsed
	}

	workflow, err := h.orchestrator.GetWorkflow(c.Request().Context(), c.Param("id"), includeTasks)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, workflow)
}

// TerminateWorkflow terminates a workflow and cascades to its sub-workflows
// (POST /api/v1/workflows/:id/terminate)
func (h *Handler) TerminateWorkflow(c echo.Context) error {
	var req TerminateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Reason == "" {
		req.Reason = "terminated via api"
	}

	ctx := c.Request().Context()
	workflow, err := h.orchestrator.GetWorkflow(ctx, c.Param("id"), false)
	if err != nil {
		return toHTTPError(err)
	}
	if err := h.orchestrator.TerminateWorkflow(ctx, workflow, req.Reason, req.FailedTaskID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, workflow)
}

// CompleteWorkflow records the final status and output of a workflow
// (POST /api/v1/workflows/:id/complete)
func (h *Handler) CompleteWorkflow(c echo.Context) error {
	var req CompleteWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.orchestrator.CompleteWorkflow(ctx, c.Param("id"), req.Status, req.Output); err != nil {
		return toHTTPError(err)
	}
	workflow, err := h.orchestrator.GetWorkflow(ctx, c.Param("id"), false)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, workflow)
}

// ScheduleTask schedules a task on a workflow and starts it
// (POST /api/v1/workflows/:id/tasks)
func (h *Handler) ScheduleTask(c echo.Context) error {
	var req ScheduleTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	task := &domain.Task{ID: req.ID, Kind: req.Kind, InputData: req.Input}
	scheduled, err := h.orchestrator.ScheduleTask(c.Request().Context(), c.Param("id"), task)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, scheduled)
}

// ExecuteTask polls a task once
// (POST /api/v1/workflows/:id/tasks/:taskId/execute)
func (h *Handler) ExecuteTask(c echo.Context) error {
	ctx := c.Request().Context()
	workflowID, taskID := c.Param("id"), c.Param("taskId")

	changed, err := h.orchestrator.ExecuteTask(ctx, workflowID, taskID)
	if err != nil {
		return toHTTPError(err)
	}

	workflow, err := h.orchestrator.GetWorkflow(ctx, workflowID, true)
	if err != nil {
		return toHTTPError(err)
	}
	for _, task := range workflow.Tasks {
		if task.ID == taskID {
			return c.JSON(http.StatusOK, ExecuteTaskResponse{Changed: changed, Task: task})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "task not found")
}

// CancelTask cancels a single task through its driver
// (POST /api/v1/workflows/:id/tasks/:taskId/cancel)
func (h *Handler) CancelTask(c echo.Context) error {
	if err := h.orchestrator.CancelTask(c.Request().Context(), c.Param("id"), c.Param("taskId")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDrivers returns the registered task kinds
// (GET /api/v1/drivers)
func (h *Handler) ListDrivers(c echo.Context) error {
	return c.JSON(http.StatusOK, DriversResponse{Kinds: h.registry.ListDrivers()})
}

func toHTTPError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.GetErrorCategory(err) == domain.CategoryWorkflow:
		status = http.StatusConflict
	}

	resp := ErrorResponse{Error: err.Error()}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Error = domainErr.Message
		resp.Code = domainErr.Code
	}
	return echo.NewHTTPError(status, resp).SetInternal(err)
}
