package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"practicetest-core/internal/config"
	"practicetest-core/internal/domain/model"
	pg "practicetest-core/internal/infra/db/postgres"
)

// Seeds the content pool with placeholder items for local development. The
// real pool is filled by an out-of-band generation pipeline.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	section := flag.String("section", string(model.SectionQuantitative), "section to seed")
	difficulty := flag.String("difficulty", "medium", "difficulty label")
	count := flag.Int("count", 20, "number of items to insert")
	flag.Parse()

	sec := model.SectionType(*section)
	if !sec.Valid() {
		log.Fatalf("invalid section %q", *section)
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := pg.NewPostgresPoolRepo(pool)
	items := make([]model.PoolItem, 0, *count)
	now := time.Now()
	for i := 0; i < *count; i++ {
		payload, _ := json.Marshal(map[string]string{
			"question": fmt.Sprintf("seed %s question #%d", sec, i+1),
			"answer":   "n/a",
		})
		items = append(items, model.PoolItem{
			ContentType: "question",
			Section:     sec,
			Difficulty:  *difficulty,
			Payload:     payload,
			CreatedAt:   now,
		})
	}
	if err := repo.Insert(ctx, nil, items); err != nil {
		log.Fatalf("insert: %v", err)
	}
	log.Printf("seeded %d %s items", len(items), sec)
}
