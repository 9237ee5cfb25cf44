package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/repository"
	"github.com/leadscout/api/internal/similarity"
	"github.com/leadscout/api/pkg/response"
)

// stalenessNoveltyFloor marks a filter set as exhausted: the last run of
// identical filters found mostly already-known profiles.
const stalenessNoveltyFloor = 0.20

type SimilarHandler struct {
	query     *similarity.Query
	history   *repository.FilterHistoryRepository
	validator *validator.Validate
}

func NewSimilarHandler(query *similarity.Query, history *repository.FilterHistoryRepository, v *validator.Validate) *SimilarHandler {
	return &SimilarHandler{
		query:     query,
		history:   history,
		validator: v,
	}
}

// Find handles POST /api/similar
func (h *SimilarHandler) Find(c *fiber.Ctx) error {
	var req model.SimilarRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	threshold := similarity.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	limit := req.Limit
	if limit <= 0 {
		limit = similarity.DefaultCandidateLimit
	}

	matches := h.query.FindSimilar(c.Context(), req.Platform, req.Filters, threshold, limit)
	return response.OK(c, fiber.Map{"matches": matches})
}

// Staleness handles POST /api/filter-staleness
func (h *SimilarHandler) Staleness(c *fiber.Ctx) error {
	var req model.StalenessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	entry, err := h.history.Latest(c.Context(), similarity.Fingerprint(req.Filters), req.Platform)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if entry == nil {
		return response.OK(c, model.StalenessResponse{Stale: false})
	}

	return response.OK(c, stalenessFrom(entry))
}

// stalenessFrom judges a filter set by the yield of its last run: low
// novelty means the filters are mined out, however long ago that run was.
func stalenessFrom(entry *model.FilterHistory) model.StalenessResponse {
	return model.StalenessResponse{
		Stale:       entry.NoveltyRate < stalenessNoveltyFloor,
		RunID:       entry.RunID,
		DaysAgo:     int(time.Since(entry.RanAt).Hours() / 24),
		TotalFound:  entry.TotalFound,
		NewFound:    entry.NewFound,
		NoveltyRate: entry.NoveltyRate,
	}
}
