package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"event-catalog/core/config"
	"event-catalog/core/reconcile"
	"event-catalog/feature/sources"
)

// debug_normalize prints how each listing in a fixture is normalized and which
// key the matcher would use for it.
//
//	go run ./cmd/debug_normalize fixtures/sample-events.yaml
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_normalize <fixture.json|fixture.yaml>")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	raws, err := sources.NewFile(os.Args[1]).Fetch(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Loaded %d listings\n", len(raws))

	norm := reconcile.NewNormalizer(cfg.Reconcile.DefaultCity, cfg.Reconcile.Timezone)
	now := time.Now()

	type row struct {
		Title     string            `json:"title"`
		Error     string            `json:"error,omitempty"`
		MatchKey  string            `json:"matchKey,omitempty"`
		Estimated bool              `json:"dateEstimated"`
		Record    *reconcile.Record `json:"record,omitempty"`
	}

	var rows []row
	for _, raw := range raws {
		rec, err := norm.Normalize(raw, now)
		if err != nil {
			rows = append(rows, row{Title: raw.Title, Error: err.Error()})
			continue
		}
		rows = append(rows, row{
			Title:     rec.Title,
			MatchKey:  rec.MatchKey(),
			Estimated: rec.DateEstimated,
			Record:    &rec,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		log.Fatal(err)
	}
}
