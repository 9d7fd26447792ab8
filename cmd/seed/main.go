package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/urbanize/urbanize-backend/internal/db"
	"github.com/urbanize/urbanize-backend/internal/reports"
	"github.com/urbanize/urbanize-backend/internal/seeds"
)

func main() {
	_ = godotenv.Load(".env.local")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	conn, err := db.Connect(dbURL)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}
	store, err := reports.Init(conn)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	n, err := seeds.SeedAll(context.Background(), store)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✓ Seeded %d reports", n)
}
