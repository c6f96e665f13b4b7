package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

type sample struct {
	domain      string
	description string
	email       string
	ip          string
	outcome     models.Outcome
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("✓ Database migrated successfully")

	samples := []sample{
		{"http://casino-bonus.example", "Gambling ads injected into search results", "alice@example.com", "192.0.2.10", models.OutcomeUndecided},
		{"https://free-prizes.example", "Phishing page asking for card details", "bob@example.com", "192.0.2.11", models.OutcomeAccepted},
		{"https://news.example", "Reported by mistake", "carol@example.com", "2001:db8::12", models.OutcomeRejected},
		{"http://casino-bonus.example/promo", "Same operator, different landing page", "dave@example.com", "192.0.2.13", models.OutcomeUndecided},
		{"ftp://warez.example", "Pirated software mirror", "erin@example.com", "198.51.100.14", models.OutcomeUndecided},
	}

	// Seeded as an administrator so decided outcomes are kept. Nothing is
	// notified on creation.
	requests := services.NewBlockRequestService(db, nil, nil)
	caller := services.Caller{Privileged: true}

	ctx := context.Background()
	for _, s := range samples {
		p := services.BlockRequestPayload{
			Description: &s.description,
			Email:       &s.email,
			IP:          &s.ip,
			Website:     &services.WebsitePayload{Domain: &s.domain},
		}
		if s.outcome.Decided() {
			p.Outcome = services.OptionalOutcome{Set: true, Value: s.outcome}
		}
		req, err := requests.Create(ctx, caller, p)
		if err != nil {
			log.Printf("Failed to seed block request for %s: %v", s.domain, err)
			continue
		}
		fmt.Printf("✓ Block request #%d for %s (%s)\n", req.ID, s.domain, req.Outcome)
	}

	sites, err := services.NewWebsiteService(db).Count(ctx)
	if err != nil {
		log.Fatal("Failed to count websites:", err)
	}
	pending, err := requests.CountPending(ctx)
	if err != nil {
		log.Fatal("Failed to count pending requests:", err)
	}

	fmt.Printf("\n✓ Seeded %d websites, %d requests awaiting review\n", sites, pending)
}
