package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// --- Product catalog items ---

// CreateProductItem adds a catalog item (with its modules, lessons and
// bonuses) to a product. All ids are reassigned server-side.
func (h *Handlers) CreateProductItem(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var item models.ProductItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if item.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	created, err := h.Engine.AddProductItem(c.Request.Context(), ownerID, funnelID, productID, item)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type UpdateProductItemInput struct {
	Name          *string           `json:"name"`
	Status        *models.Status    `json:"status"`
	Value         *float64          `json:"value"`
	Promise       *string           `json:"promise"`
	Modules       []models.Module   `json:"modules"`
	Lessons       []models.Lesson   `json:"lessons"`
	Bonuses       []models.Bonus    `json:"bonuses"`
	WhatsappGroup *string           `json:"whatsappGroup"`
	TelegramGroup *string           `json:"telegramGroup"`
	HasAffiliates *bool             `json:"hasAffiliates"`
	Notes         *string           `json:"notes"`
	OfferType     *models.OfferType `json:"offerType"`
}

// UpdateProductItem patches a catalog item. The nested module/lesson/
// bonus lists are replaced wholesale when present.
func (h *Handlers) UpdateProductItem(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	itemID := c.Param("itemId")

	var input UpdateProductItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Engine.UpdateProductItem(c.Request.Context(), ownerID, funnelID, productID, itemID, func(item *models.ProductItem) error {
		if input.Name != nil {
			item.Name = *input.Name
		}
		if input.Status != nil {
			item.Status = *input.Status
		}
		if input.Value != nil {
			item.Value = input.Value
		}
		if input.Promise != nil {
			item.Promise = *input.Promise
		}
		if input.Modules != nil {
			item.Modules = input.Modules
		}
		if input.Lessons != nil {
			item.Lessons = input.Lessons
		}
		if input.Bonuses != nil {
			item.Bonuses = input.Bonuses
		}
		if input.WhatsappGroup != nil {
			item.WhatsappGroup = *input.WhatsappGroup
		}
		if input.TelegramGroup != nil {
			item.TelegramGroup = *input.TelegramGroup
		}
		if input.HasAffiliates != nil {
			item.HasAffiliates = *input.HasAffiliates
		}
		if input.Notes != nil {
			item.Notes = *input.Notes
		}
		if input.OfferType != nil {
			item.OfferType = *input.OfferType
		}
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item updated"})
}

// DeleteProductItem removes a catalog item.
func (h *Handlers) DeleteProductItem(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")
	itemID := c.Param("itemId")

	if err := h.Engine.DeleteProductItem(c.Request.Context(), ownerID, funnelID, productID, itemID); err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

type MoveItemInput struct {
	SourceIndex int `json:"sourceIndex" binding:"min=0"`
	DestIndex   int `json:"destIndex" binding:"min=0"`
}

// MoveProductItem splice-moves a catalog item to a new position.
func (h *Handlers) MoveProductItem(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var input MoveItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.Engine.MoveProductItem(c.Request.Context(), ownerID, funnelID, productID, input.SourceIndex, input.DestIndex)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved})
}
