// Package onboarding implements the onboarding progress endpoints used by the
// pastor dashboard and the WhatsApp onboarding agent.
package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/middleware"
	"github.com/ekkle/ekkle-admin/internal/onboarding"
)

// Tracker is the part of *onboarding.Tracker the endpoints use.
type Tracker interface {
	Detect(ctx context.Context, churchID uuid.UUID, pastorID *uuid.UUID) (*models.OnboardingStatus, error)
	Status(ctx context.Context, churchID uuid.UUID) (*models.OnboardingStatus, error)
}

// Handlers serves /api/v1/onboarding.
type Handlers struct {
	tracker Tracker
}

// NewHandlers creates a new Handlers instance
func NewHandlers(tracker Tracker) *Handlers {
	return &Handlers{tracker: tracker}
}

func churchParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("church_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid church ID"})
		return uuid.Nil, false
	}
	return id, true
}

// @Summary      Get onboarding progress
// @Description  Stored step flags plus progress percentage, current step and next-step guidance. A church never detected reports step 1.
// @Tags         Onboarding
// @Security     Bearer
// @Produce      json
// @Param        church_id  path  string  true  "Church UUID"
// @Success      200  {object}  onboarding.Report
// @Failure      403  {object}  map[string]interface{}  "Not a member of this church"
// @Router       /api/v1/onboarding/{church_id} [get]
// GetStatusHandler reports a church's onboarding progress.
func (h *Handlers) GetStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		churchID, ok := churchParam(c)
		if !ok {
			return
		}

		status, err := h.tracker.Status(c.Request.Context(), churchID)
		if err != nil {
			slog.Error("failed to load onboarding status", "church_id", churchID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load onboarding status"})
			return
		}
		c.JSON(http.StatusOK, onboarding.NewReport(status))
	}
}

// @Summary      Detect onboarding progress
// @Description  Re-derives the four steps from the church's data and records newly completed ones. Completed steps are never reset.
// @Tags         Onboarding
// @Security     Bearer
// @Produce      json
// @Param        church_id  path  string  true  "Church UUID"
// @Success      200  {object}  onboarding.Report
// @Failure      404  {object}  map[string]interface{}  "Church not found"
// @Router       /api/v1/onboarding/{church_id}/detect [post]
// DetectHandler runs detection for a church.
func (h *Handlers) DetectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		churchID, ok := churchParam(c)
		if !ok {
			return
		}

		// Only the church's own members are recorded as its pastor.
		var pastorID *uuid.UUID
		if p := middleware.GetProfile(c); p != nil && p.ChurchID != nil && *p.ChurchID == churchID {
			id := p.ID
			pastorID = &id
		}

		status, err := h.tracker.Detect(c.Request.Context(), churchID, pastorID)
		switch {
		case errors.Is(err, onboarding.ErrChurchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Church not found"})
			return
		case err != nil:
			slog.Error("onboarding detection failed", "church_id", churchID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detect onboarding progress"})
			return
		}
		c.JSON(http.StatusOK, onboarding.NewReport(status))
	}
}
