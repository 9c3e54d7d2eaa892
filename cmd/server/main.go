package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"counterpoint/internal/config"
	"counterpoint/internal/core"
	"counterpoint/internal/driver"
	"counterpoint/internal/llm"
	"counterpoint/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using built-in defaults", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	ctx := context.Background()

	clients, err := llm.NewClients(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM clients: %v", err)
	}

	// The graph store is optional; without it analyses live only in memory.
	var drv driver.GraphDriver
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			log.Fatalf("Failed to connect to Memgraph: %v", err)
		}
		defer d.Close(ctx)
		drv = d
	}

	studio := core.NewStudio(cfg, clients, drv)
	if err := studio.BuildIndices(ctx); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}

	srv := server.NewServer(studio)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
