package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/engine"
	"github.com/funnelboard/funnelboard-golang/internal/funnel"
	"github.com/funnelboard/funnelboard-golang/internal/models"
)

type CreateStepInput struct {
	Name        string          `json:"name" binding:"required"`
	Type        models.StepType `json:"type" binding:"required"`
	Description string          `json:"description"`
	ParentID    string          `json:"parentId"`
	Link        string          `json:"link"`
	Notes       string          `json:"notes"`
	IsCustom    bool            `json:"isCustom"`
}

// CreateStep inserts a step into the product's flow. A capture step is
// slotted in first; everything else appends to its pool.
func (h *Handlers) CreateStep(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var input CreateStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !funnel.ValidType(input.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown step type"})
		return
	}

	step := models.Step{
		Name:        input.Name,
		Type:        input.Type,
		Description: input.Description,
		ParentID:    input.ParentID,
		Link:        input.Link,
		Notes:       input.Notes,
		IsCustom:    input.IsCustom || input.Type == models.StepCustom,
	}

	created, err := h.Engine.AddStep(c.Request.Context(), ownerID, funnelID, productID, step)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type UpdateStepInput struct {
	Name                *string        `json:"name"`
	Description         *string        `json:"description"`
	Status              *models.Status `json:"status"`
	ParentID            *string        `json:"parentId"` // pointer: "" clears the parent
	Link                *string        `json:"link"`
	Notes               *string        `json:"notes"`
	DetailedDescription *string        `json:"detailedDescription"`
	UpsellProducts      []string       `json:"upsellProducts"`
	RelatedProducts     []string       `json:"relatedProducts"`
	DownsellValue       *float64       `json:"downsellValue"`
}

// UpdateStep patches a step. Parent changes are re-validated against
// the product's page list.
func (h *Handlers) UpdateStep(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	stepID := c.Param("stepId")

	var input UpdateStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Engine.UpdateStep(c.Request.Context(), ownerID, funnelID, productID, stepID, func(s *models.Step) error {
		if input.Name != nil {
			s.Name = *input.Name
		}
		if input.Description != nil {
			s.Description = *input.Description
		}
		if input.Status != nil {
			s.Status = *input.Status
		}
		if input.ParentID != nil {
			s.ParentID = *input.ParentID
		}
		if input.Link != nil {
			s.Link = *input.Link
		}
		if input.Notes != nil {
			s.Notes = *input.Notes
		}
		if input.DetailedDescription != nil {
			s.DetailedDescription = *input.DetailedDescription
		}
		if input.UpsellProducts != nil {
			s.UpsellProducts = input.UpsellProducts
		}
		if input.RelatedProducts != nil {
			s.RelatedProducts = input.RelatedProducts
		}
		if input.DownsellValue != nil {
			s.DownsellValue = input.DownsellValue
		}
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Step updated"})
}

// GetDeletePlan previews what deleting the step would do, without
// changing anything. The client uses this to render the confirmation
// dialog.
func (h *Handlers) GetDeletePlan(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	stepID := c.Param("stepId")

	plan, err := h.Engine.PlanDeleteStep(c.Request.Context(), ownerID, funnelID, productID, stepID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// DeleteStep executes the delete plan. A cascade that would take
// children with it returns 409 plus the plan until the client retries
// with ?confirm=true. Rescue plans apply without confirmation.
func (h *Handlers) DeleteStep(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	stepID := c.Param("stepId")
	confirmed := c.Query("confirm") == "true"

	plan, err := h.Engine.DeleteStep(c.Request.Context(), ownerID, funnelID, productID, stepID, confirmed)
	if errors.Is(err, engine.ErrConfirmRequired) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Deleting this step also deletes its children; retry with confirm=true",
			"plan":  plan,
		})
		return
	}
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Step deleted", "plan": plan})
}

// MoveStep nudges a step within its sibling pool (traffic steps and
// funnel steps are ordered independently).
func (h *Handlers) MoveStep(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	stepID := c.Param("stepId")

	var input MoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.Engine.MoveStep(c.Request.Context(), ownerID, funnelID, productID, stepID, directionFrom(input))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

type DragStepInput struct {
	Pool        string `json:"pool" binding:"required,oneof=traffic funnel"`
	SourceIndex int    `json:"sourceIndex" binding:"min=0"`
	DestIndex   int    `json:"destIndex" binding:"min=0"`
}

// DragStep applies drag-and-drop reordering within one pool.
func (h *Handlers) DragStep(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var input DragStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool := funnel.PoolFunnel
	if input.Pool == "traffic" {
		pool = funnel.PoolTraffic
	}

	moved, err := h.Engine.DragStep(c.Request.Context(), ownerID, funnelID, productID, pool, input.SourceIndex, input.DestIndex)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

// --- Hierarchy view ---

type hierarchySection struct {
	Pages    []models.Step `json:"pages"`
	Children []models.Step `json:"children"`
}

// GetHierarchy returns the board view of one product: parent sections
// with their page pairs and children, plus the orphan groups.
func (h *Handlers) GetHierarchy(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	funnels, err := h.Engine.LoadAll(c.Request.Context(), ownerID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	var product *models.Product
	for i := range funnels {
		if funnels[i].ID == funnelID {
			product = funnels[i].FindProduct(productID)
			break
		}
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	view := funnel.Resolve(product.Steps)
	sections := make([]hierarchySection, 0, len(view.ParentSections))
	for _, parent := range view.ParentSections {
		sections = append(sections, hierarchySection{
			Pages:    view.PagePair(parent),
			Children: view.ChildrenOf(parent.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sections":          sections,
		"orphanParentPages": view.OrphanParentPages,
		"orphanChildren":    view.OrphanChildren,
	})
}
