package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/funnelboard/funnelboard-golang/internal/ai"
	"github.com/funnelboard/funnelboard-golang/internal/database"
	"github.com/funnelboard/funnelboard-golang/internal/engine"
	"github.com/funnelboard/funnelboard-golang/internal/handlers"
	"github.com/funnelboard/funnelboard-golang/internal/realtime"
	"github.com/funnelboard/funnelboard-golang/internal/routes"
	"github.com/funnelboard/funnelboard-golang/internal/store"
)

func main() {
	// --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// --- Database Connection ---
	client, err := database.OpenMongo()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	// --- Local Cache (offline fallback) ---
	cacheDir := os.Getenv("FUNNEL_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = ".cache"
	}
	cache, err := store.NewCache(cacheDir)
	if err != nil {
		log.Fatalf("Failed to set up local cache: %v", err)
	}

	// --- Sync Engine ---
	funnelStore := store.NewMongoStore(client, database.Name())
	eng := engine.NewEngine(funnelStore, cache)

	// --- Realtime Hub ---
	// Every applied mutation is broadcast to the owner's other tabs.
	hub := realtime.NewHub()
	eng.Notify = hub.Broadcast

	// --- AI Service (optional) ---
	// Without a key the insights endpoint answers 503; everything else
	// works normally.
	var aiService *ai.InsightsService
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		aiService, err = ai.NewInsightsService(context.Background(), geminiKey)
		if err != nil {
			log.Fatalf("Failed to initialize AI service: %v", err)
		}
		defer aiService.Close()
	} else {
		log.Println("WARNING: GEMINI_API_KEY not set, audience insights disabled.")
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		Engine: eng,
		Users:  client.Database(database.Name()).Collection("users"),
		AI:     aiService,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, hub)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting FunnelBoard API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
