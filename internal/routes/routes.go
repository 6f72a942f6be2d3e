package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/handlers"
	"github.com/funnelboard/funnelboard-golang/internal/middleware"
	"github.com/funnelboard/funnelboard-golang/internal/realtime"
)

// CORSMiddleware tells the browser which frontend origin may call us.
func CORSMiddleware() gin.HandlerFunc {
	allowedOrigin := os.Getenv("CORS_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// The browser sends an empty preflight request first; reply with
		// "204 No Content".
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, hub *realtime.Hub) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Public Funnel View ---
		v1.GET("/public/funnels/:id", h.GetPublicFunnel)

		// --- Step Type Catalog (Public) ---
		v1.GET("/step-types", h.GetStepTypes)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Realtime Board Events ---
			auth.GET("/ws", hub.HandleWS)

			// --- Funnel Routes ---
			auth.GET("/funnels", h.GetMyFunnels)
			auth.POST("/funnels", h.CreateFunnel)
			auth.PATCH("/funnels/:id", h.UpdateFunnel)
			auth.DELETE("/funnels/:id", h.DeleteFunnel)
			auth.POST("/funnels/:id/duplicate", h.DuplicateFunnel)
			auth.POST("/funnels/:id/activate", h.SetActiveFunnel)
			auth.POST("/funnels/:id/publish", h.PublishFunnel)
			auth.POST("/funnels/:id/insights", h.GenerateInsights)

			// --- Product Routes ---
			auth.POST("/funnels/:id/products", h.CreateProduct)
			auth.PATCH("/funnels/:id/products/:productId", h.UpdateProduct)
			auth.DELETE("/funnels/:id/products/:productId", h.DeleteProduct)
			auth.POST("/funnels/:id/products/:productId/move", h.MoveProduct)

			// --- Step Routes ---
			auth.GET("/funnels/:id/products/:productId/hierarchy", h.GetHierarchy)
			auth.POST("/funnels/:id/products/:productId/steps", h.CreateStep)
			auth.PATCH("/funnels/:id/products/:productId/steps/:stepId", h.UpdateStep)
			auth.GET("/funnels/:id/products/:productId/steps/:stepId/delete-plan", h.GetDeletePlan)
			auth.DELETE("/funnels/:id/products/:productId/steps/:stepId", h.DeleteStep)
			auth.POST("/funnels/:id/products/:productId/steps/:stepId/move", h.MoveStep)
			auth.POST("/funnels/:id/products/:productId/steps/drag", h.DragStep)

			// --- Product Item Routes ---
			auth.POST("/funnels/:id/products/:productId/items", h.CreateProductItem)
			auth.PATCH("/funnels/:id/products/:productId/items/:itemId", h.UpdateProductItem)
			auth.DELETE("/funnels/:id/products/:productId/items/:itemId", h.DeleteProductItem)
			auth.POST("/funnels/:id/products/:productId/items/move", h.MoveProductItem)
		}
	}

	return router
}
