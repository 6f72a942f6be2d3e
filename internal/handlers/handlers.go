package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/funnelboard/funnelboard-golang/internal/ai"
	"github.com/funnelboard/funnelboard-golang/internal/engine"
	"github.com/funnelboard/funnelboard-golang/internal/store"
)

// Handlers holds every dependency the HTTP layer needs. All handler
// methods hang off this struct so main can inject connections once.
type Handlers struct {
	Engine *engine.Engine
	Users  *mongo.Collection
	AI     *ai.InsightsService // nil when GEMINI_API_KEY is not configured
}

// respondEngineError translates engine sentinel errors into HTTP status
// codes. Anything unknown is a 500.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrFunnelNotFound),
		errors.Is(err, engine.ErrProductNotFound),
		errors.Is(err, engine.ErrStepNotFound),
		errors.Is(err, engine.ErrItemNotFound),
		errors.Is(err, engine.ErrNotPublic),
		errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrParentRequired),
		errors.Is(err, engine.ErrInvalidParent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConfirmRequired),
		errors.Is(err, engine.ErrTempID):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
