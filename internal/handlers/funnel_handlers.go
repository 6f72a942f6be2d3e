package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// --- Funnel CRUD ---

// GetMyFunnels returns the caller's funnels plus the active selection.
func (h *Handlers) GetMyFunnels(c *gin.Context) {
	ownerID := c.GetString("userID")

	funnels, err := h.Engine.LoadAll(c.Request.Context(), ownerID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	activeID, err := h.Engine.ActiveID(c.Request.Context(), ownerID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"funnels":  funnels,
		"activeId": activeID,
	})
}

type CreateFunnelInput struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	FromTemplate bool   `json:"fromTemplate"`
}

// CreateFunnel creates an empty funnel or one seeded from the starter
// template, and makes it the active funnel.
func (h *Handlers) CreateFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")

	var input CreateFunnelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	funnel, err := h.Engine.Create(c.Request.Context(), ownerID, input.Name, input.Description, input.FromTemplate)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, funnel)
}

// Optional fields are pointers so an absent field means "leave alone".
type UpdateFunnelInput struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	AudienceTarget *models.AudienceTarget `json:"audienceTarget"`
}

// UpdateFunnel patches the funnel's own fields (not its products).
func (h *Handlers) UpdateFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	var input UpdateFunnelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Engine.Update(c.Request.Context(), ownerID, funnelID, func(f *models.Funnel) error {
		if input.Name != nil {
			f.Name = *input.Name
		}
		if input.Description != nil {
			f.Description = *input.Description
		}
		if input.AudienceTarget != nil {
			f.AudienceTarget = input.AudienceTarget
		}
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteFunnel removes the funnel.
func (h *Handlers) DeleteFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	if err := h.Engine.Delete(c.Request.Context(), ownerID, funnelID); err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Funnel deleted"})
}

// DuplicateFunnel deep-copies the funnel under a new name.
func (h *Handlers) DuplicateFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	dup, err := h.Engine.Duplicate(c.Request.Context(), ownerID, funnelID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dup)
}

// SetActiveFunnel moves the caller's active-funnel pointer.
func (h *Handlers) SetActiveFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	if err := h.Engine.SetActive(c.Request.Context(), ownerID, funnelID); err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activeId": funnelID})
}

// --- Public sharing ---

// PublishFunnel makes the funnel publicly viewable. A funnel that has
// not finished its first sync answers 409; a failed remote write
// surfaces instead of pretending the share link is live.
func (h *Handlers) PublishFunnel(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	if err := h.Engine.MakePublic(c.Request.Context(), ownerID, funnelID); err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Funnel published", "funnelId": funnelID})
}

// GetPublicFunnel serves a shared funnel to anonymous viewers.
func (h *Handlers) GetPublicFunnel(c *gin.Context) {
	funnelID := c.Param("id")

	funnel, err := h.Engine.LoadPublic(c.Request.Context(), funnelID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, funnel)
}

// --- AI audience insights ---

// GenerateInsights asks the AI service for audience pains and tone,
// then stores the result on the funnel. The funnel must already carry
// an audience target (set via UpdateFunnel).
func (h *Handlers) GenerateInsights(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	if h.AI == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI insights are not configured on this server"})
		return
	}

	funnels, err := h.Engine.LoadAll(c.Request.Context(), ownerID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	var target *models.AudienceTarget
	var funnelName string
	for _, f := range funnels {
		if f.ID == funnelID {
			target = f.AudienceTarget
			funnelName = f.Name
			break
		}
	}
	if funnelName == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "funnel not found"})
		return
	}
	if target == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Set an audience target before generating insights"})
		return
	}

	insights, err := h.AI.GenerateAudienceInsights(c.Request.Context(), funnelName, *target)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Engine.Update(c.Request.Context(), ownerID, funnelID, func(f *models.Funnel) error {
		f.AudienceInsights = insights
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insights": updated.AudienceInsights,
	})
}
