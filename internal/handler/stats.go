package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/service"
	"github.com/leadscout/api/pkg/response"
)

// statsWindow is how many recent runs the dashboard aggregates over
const statsWindow = 100

type StatsHandler struct {
	service *service.DiscoveryService
}

func NewStatsHandler(svc *service.DiscoveryService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Get handles GET /api/stats
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	snaps, err := h.service.ListRuns(c.Context(), statsWindow)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	stats := model.StatsResponse{
		RunsByStatus:      map[string]int{},
		TierDistribution:  map[string]int{},
		LatestRunStatuses: map[string]string{},
	}
	for _, snap := range snaps {
		stats.TotalRuns++
		stats.RunsByStatus[string(snap.Status)]++
		if !snap.Status.Terminal() {
			stats.ActiveRuns++
		}
		stats.ProfilesFound += snap.ProfilesFound
		stats.ContactsSynced += snap.ContactsSynced
		stats.TotalActualCost += snap.ActualCost
		for tier, n := range snap.TierDistribution {
			stats.TierDistribution[tier] += n
		}
		if _, ok := stats.LatestRunStatuses[snap.Platform]; !ok {
			stats.LatestRunStatuses[snap.Platform] = string(snap.Status)
		}
	}

	return response.OK(c, stats)
}
