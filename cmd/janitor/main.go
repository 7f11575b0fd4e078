package main

import (
	"flag"
	"log"

	"github.com/kopf/radiostats/internal/config"
	database "github.com/kopf/radiostats/internal/db"
	"github.com/kopf/radiostats/internal/janitor"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	plays := flag.Bool("plays", true, "Collapse duplicate plays")
	songs := flag.Bool("songs", false, "Merge duplicate song rows")
	flag.Parse()

	log.Println("Starting Janitor...")

	cfg := config.Load()
	db := database.New(cfg)
	db.AutoMigrate()

	if *plays {
		if _, err := janitor.CollapseDuplicatePlays(db.DB); err != nil {
			log.Fatalf("❌ Collapsing duplicate plays failed: %v", err)
		}
	}
	if *songs {
		merged, err := janitor.MergeDuplicateSongs(db.DB)
		if err != nil {
			log.Fatalf("❌ Merging duplicate songs failed: %v", err)
		}
		log.Printf("✅ Merged %d duplicate songs", merged)
	}
}
