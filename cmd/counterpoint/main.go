package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"counterpoint/internal/config"
	"counterpoint/internal/core"
	"counterpoint/internal/core/analysis"
	"counterpoint/internal/export"
	"counterpoint/internal/llm"
)

// One-shot analysis from the command line: run the pipeline against a
// channel, write the studio file, optionally generate the deck alongside it.
func main() {
	channel := flag.String("channel", "", "channel URL to analyze")
	output := flag.String("o", "studio.toml", "output studio file")
	deckOut := flag.String("deck", "", "also generate a rebuttal deck and write it as JSON to this path")
	cfgPath := flag.String("config", "config/config.toml", "config file path")
	flag.Parse()

	if *channel == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using built-in defaults", *cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	ctx := context.Background()

	clients, err := llm.NewClients(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM clients: %v", err)
	}

	studio := core.NewStudio(cfg, clients, nil)

	log.Printf("Analyzing %s", *channel)
	a, err := studio.AnalyzeChannel(ctx, *channel, func(stage analysis.Stage) {
		log.Printf("Stage: %s", stage)
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	log.Printf("Found %d videos, %d themes, %d links", len(a.Videos), len(a.Nodes), len(a.Links))

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	if err := export.Write(f, a); err != nil {
		f.Close()
		log.Fatalf("Failed to write studio file: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to write studio file: %v", err)
	}
	log.Printf("Wrote %s", *output)

	if *deckOut == "" {
		return
	}

	log.Println("Generating deck")
	deck, err := studio.GenerateDeck(ctx, a, func(i, total int) {
		log.Printf("Slide %d/%d", i+1, total)
	})
	if err != nil {
		log.Fatalf("Deck generation failed: %v", err)
	}

	data, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode deck: %v", err)
	}
	if err := os.WriteFile(*deckOut, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *deckOut, err)
	}
	log.Printf("Wrote %s", *deckOut)
}
