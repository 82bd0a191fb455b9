package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/mercurio-pos/api/internal/config"
	"github.com/mercurio-pos/api/internal/router"
	"github.com/mercurio-pos/api/internal/store"
	"github.com/mercurio-pos/api/internal/store/memory"
	"github.com/mercurio-pos/api/internal/store/postgres"
	"github.com/mercurio-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer pg.Close()
		st = pg
		log.Println("Connected to database")
	} else {
		// no DATABASE_URL: run on the in-memory store (development only)
		st = memory.New()
		log.Println("WARNING: DATABASE_URL not set, using in-memory store")
	}

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, st, hub, loc)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
