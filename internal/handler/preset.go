package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/repository"
	"github.com/leadscout/api/pkg/response"
)

type PresetHandler struct {
	presets   *repository.PresetRepository
	validator *validator.Validate
}

func NewPresetHandler(presets *repository.PresetRepository, v *validator.Validate) *PresetHandler {
	return &PresetHandler{
		presets:   presets,
		validator: v,
	}
}

// List handles GET /api/presets
func (h *PresetHandler) List(c *fiber.Ctx) error {
	presets, err := h.presets.List(c.Context(), c.Query("platform"))
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"presets": presets})
}

// Create handles POST /api/presets
func (h *PresetHandler) Create(c *fiber.Ctx) error {
	var req model.CreatePresetRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	preset := &model.Preset{
		Name:     req.Name,
		Platform: req.Platform,
		Filters:  model.JSONMap(req.Filters),
	}
	if err := h.presets.Create(c.Context(), preset); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, preset)
}

// Delete handles DELETE /api/presets/:presetId
func (h *PresetHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("presetId")
	if err != nil || id < 1 {
		return response.ValidationError(c, "Preset ID must be a positive integer", nil)
	}

	if err := h.presets.Delete(c.Context(), uint(id)); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}
