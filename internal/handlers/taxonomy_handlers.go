package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/funnel"
)

// GetStepTypes lists the step type catalog so clients can render the
// add-step picker without hardcoding the taxonomy.
func (h *Handlers) GetStepTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": funnel.TypeCatalog()})
}
