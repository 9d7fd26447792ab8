// Package cronjobs keeps the reading cache warm for configured watch points.
package cronjobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/urbanize/urbanize-backend/internal/cache"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/logger"
)

// Warmer refreshes AQI and traffic readings for a fixed set of points.
type Warmer struct {
	Deps    insights.Deps
	Points  []config.WatchPoint
	Timeout time.Duration
}

// WarmAll fetches fresh readings for every point and stores them, replacing any
// cached value. It returns how many readings were stored.
func (w Warmer) WarmAll(ctx context.Context) int {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	stored := 0
	for _, p := range w.Points {
		at := provider.Coordinates{Lat: p.Lat, Lon: p.Lon}
		pctx, cancel := context.WithTimeout(ctx, timeout)

		if w.Deps.AQI != nil {
			reading := w.Deps.AQI.Reading(pctx, at)
			if err := cache.Store(pctx, w.Deps.Cache, insights.KindAQI, at, reading); err != nil {
				logger.L().Warn("warm_aqi_failed", "point", p.Name, "err", err)
			} else {
				stored++
			}
		}

		if w.Deps.Traffic != nil {
			reading, err := w.Deps.Traffic.Current(pctx, at)
			if err == nil {
				err = cache.Store(pctx, w.Deps.Cache, insights.KindTraffic, at, reading)
			}
			if err != nil {
				logger.L().Warn("warm_traffic_failed", "point", p.Name, "err", err)
			} else {
				stored++
			}
		}
		cancel()
	}
	return stored
}

// InitCronJobs schedules WarmAll every interval and starts the scheduler. It returns
// nil when there is nothing to watch.
func InitCronJobs(w Warmer, interval time.Duration) (*cron.Cron, error) {
	if len(w.Points) == 0 {
		return nil, nil
	}
	logger.L().Info("cron_starting", "watch_points", len(w.Points), "interval", interval.String())
	c := cron.New()

	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		start := time.Now()
		n := w.WarmAll(context.Background())
		logger.L().Info("cron_warm_done", "stored", n, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cache warming: %w", err)
	}

	c.Start()
	return c, nil
}
