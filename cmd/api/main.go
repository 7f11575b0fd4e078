package main

import (
	"log"

	"github.com/kopf/radiostats/internal/api"
	"github.com/kopf/radiostats/internal/config"
	database "github.com/kopf/radiostats/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Radio Stats API Server...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Initialize Infrastructure
	db := database.New(cfg)
	db.AutoMigrate()

	// 3. Start Server
	srv := api.New(cfg, db)
	log.Printf("🚀 API Server starting on %s", cfg.API.Port)
	if err := srv.Start(cfg.API.Port); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
