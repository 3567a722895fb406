package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// RoadmapHandler serves the saved-roadmap endpoints.
type RoadmapHandler struct {
	roadmaps RoadmapStore
	logger   *slog.Logger
}

// NewRoadmapHandler creates a RoadmapHandler.
func NewRoadmapHandler(roadmaps RoadmapStore, logger *slog.Logger) *RoadmapHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoadmapHandler{roadmaps: roadmaps, logger: logger}
}

// List handles GET /api/ai/roadmaps.
func (h *RoadmapHandler) List(c *gin.Context) {
	roadmaps, err := h.roadmaps.ListRoadmaps(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"roadmaps": roadmaps,
		"count":    len(roadmaps),
	})
}

// Get handles GET /api/ai/roadmaps/:id.
func (h *RoadmapHandler) Get(c *gin.Context) {
	id, err := roadmapID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	roadmap, err := h.roadmaps.GetRoadmap(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roadmap": roadmap})
}

// Delete handles DELETE /api/ai/roadmaps/:id.
func (h *RoadmapHandler) Delete(c *gin.Context) {
	id, err := roadmapID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.roadmaps.DeleteRoadmap(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Roadmap deleted successfully"})
}

type progressRequest struct {
	ProgressPercentage *int    `json:"progress_percentage"`
	CompletedPhases    []int   `json:"completed_phases"`
	Notes              *string `json:"notes"`
}

// UpdateProgress handles PUT /api/ai/roadmaps/:id/progress. Omitted fields keep their value.
func (h *RoadmapHandler) UpdateProgress(c *gin.Context) {
	id, err := roadmapID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req progressRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.logger, err)
		return
	}

	roadmap, err := h.roadmaps.UpdateRoadmapProgress(c.Request.Context(), currentUser(c).ID, id, domain.RoadmapProgress{
		ProgressPercentage: req.ProgressPercentage,
		CompletedPhases:    req.CompletedPhases,
		Notes:              req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Roadmap progress updated successfully",
		"roadmap": roadmap,
	})
}

func roadmapID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Message: "invalid roadmap id"}
	}
	return id, nil
}
