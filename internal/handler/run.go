package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/service"
	"github.com/leadscout/api/pkg/response"
)

// DefaultListLimit bounds GET /api/runs when no limit is given
const DefaultListLimit = 20

type RunHandler struct {
	service   *service.DiscoveryService
	validator *validator.Validate
}

func NewRunHandler(svc *service.DiscoveryService, v *validator.Validate) *RunHandler {
	return &RunHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/runs
func (h *RunHandler) Start(c *fiber.Ctx) error {
	var req model.StartRunRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartRun(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/runs/:runId
func (h *RunHandler) Get(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	snap, err := h.service.GetRun(c.Context(), runID)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			return response.NotFound(c, "Run not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, snap)
}

// List handles GET /api/runs
func (h *RunHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultListLimit)
	if limit < 1 || limit > 200 {
		return response.ValidationError(c, "limit must be between 1 and 200", nil)
	}

	snaps, err := h.service.ListRuns(c.Context(), limit)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"runs": snaps})
}

// Delete handles DELETE /api/runs/:runId
func (h *RunHandler) Delete(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	if err := h.service.DeleteRun(c.Context(), runID); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

// Cancel handles POST /api/runs/:runId/cancel
func (h *RunHandler) Cancel(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	snap, err := h.service.CancelRun(c.Context(), runID)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			return response.NotFound(c, "Run not found")
		}
		if err.Error() == "run already finished" {
			return response.ValidationError(c, "Run already finished", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, snap)
}
