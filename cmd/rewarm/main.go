package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/cronjobs"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/insights"
)

// rewarm refreshes the cached AQI and traffic readings for every configured watch
// point once, without waiting for the server's schedule.
func main() {
	godotenv.Load(".env.local")

	lat := flag.Float64("lat", 0, "extra point latitude")
	lon := flag.Float64("lon", 0, "extra point longitude")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Redis.Addr == "" {
		log.Fatal("REDIS_HOST not set")
	}

	points := cfg.WatchPoints
	if *lat != 0 || *lon != 0 {
		points = append(points, config.WatchPoint{Name: "cli", Lat: *lat, Lon: *lon})
	}
	if len(points) == 0 {
		log.Fatal("no watch points: set watch_points in URBANIZE_CONFIG or pass -lat/-lon")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deps, closeDeps := insights.Init(ctx, cfg, traffic.NewClient(cfg.TomTomKey, cfg.TomTomEndpoint))
	defer closeDeps()
	if deps.Cache == nil {
		log.Fatalf("cache unreachable at %s", cfg.Redis.Addr)
	}

	n := cronjobs.Warmer{Deps: deps, Points: points}.WarmAll(ctx)
	fmt.Printf("✓ Stored %d readings for %d watch points (ttl %s)\n", n, len(points), cfg.Redis.TTL)
}
