package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/funnel"
	"github.com/funnelboard/funnelboard-golang/internal/models"
)

type CreateProductInput struct {
	Name        string   `json:"name" binding:"required"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Promise     string   `json:"promise"`
	Value       *float64 `json:"value"`
}

// CreateProduct appends a product to the funnel.
func (h *Handlers) CreateProduct(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := models.Product{
		Name:         input.Name,
		Type:         input.Type,
		Description:  input.Description,
		Promise:      input.Promise,
		Value:        input.Value,
		Status:       models.StatusTodo,
		Steps:        []models.Step{},
		ProductItems: []models.ProductItem{},
	}

	created, err := h.Engine.AddProduct(c.Request.Context(), ownerID, funnelID, product)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type UpdateProductInput struct {
	Name        *string        `json:"name"`
	Type        *string        `json:"type"`
	Description *string        `json:"description"`
	Promise     *string        `json:"promise"`
	Status      *models.Status `json:"status"`
	Link        *string        `json:"link"`
	Notes       *string        `json:"notes"`
	Value       *float64       `json:"value"`
}

// UpdateProduct patches a product's own fields.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Engine.UpdateProduct(c.Request.Context(), ownerID, funnelID, productID, func(p *models.Product) error {
		if input.Name != nil {
			p.Name = *input.Name
		}
		if input.Type != nil {
			p.Type = *input.Type
		}
		if input.Description != nil {
			p.Description = *input.Description
		}
		if input.Promise != nil {
			p.Promise = *input.Promise
		}
		if input.Status != nil {
			p.Status = *input.Status
		}
		if input.Link != nil {
			p.Link = *input.Link
		}
		if input.Notes != nil {
			p.Notes = *input.Notes
		}
		if input.Value != nil {
			p.Value = input.Value
		}
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
}

// DeleteProduct removes a product; its steps and items go with it.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	if err := h.Engine.DeleteProduct(c.Request.Context(), ownerID, funnelID, productID); err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

type MoveInput struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

func directionFrom(input MoveInput) funnel.Direction {
	if input.Direction == "up" {
		return funnel.MoveUp
	}
	return funnel.MoveDown
}

// MoveProduct nudges the product up or down the funnel's product list.
func (h *Handlers) MoveProduct(c *gin.Context) {
	ownerID := c.GetString("userID")
	funnelID := c.Param("id")
	productID := c.Param("productId")

	var input MoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.Engine.MoveProduct(c.Request.Context(), ownerID, funnelID, productID, directionFrom(input))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved})
}
