// Package seeds loads demo reports around Jaipur's old city.
package seeds

import (
	"context"
	"fmt"

	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

func f(v float64) *float64 { return &v }

// DemoReports are the fixtures SeedAll inserts.
var DemoReports = []reports.NewReport{
	{UserID: "demo-citizen", Category: reports.Pothole, Priority: reports.High,
		Description: "Deep pothole near Hawa Mahal bus stop", Longitude: f(75.8267), Latitude: f(26.9239)},
	{UserID: "demo-citizen", Category: reports.Traffic, Priority: reports.Medium,
		Description: "Signal at Badi Chaupar stuck on red during evening peak", Longitude: f(75.8271), Latitude: f(26.9246)},
	{UserID: "demo-citizen", Category: reports.ParkIdea, Priority: reports.Low,
		Description: "Pocket park on the vacant plot behind Tripolia Bazaar", Longitude: f(75.8222), Latitude: f(26.9229)},
	{UserID: "demo-planner", Category: reports.Construction, Priority: reports.Medium,
		Description: "Metro works narrowing Chandpole road", Longitude: f(75.8149), Latitude: f(26.9226)},
}

// SeedAll inserts DemoReports unless the store already has reports. It returns how
// many were inserted.
func SeedAll(ctx context.Context, store reports.Store) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reports: %w", err)
	}
	if len(existing) > 0 {
		logger.L().Info("seed_skipped", "existing", len(existing))
		return 0, nil
	}

	for i, in := range DemoReports {
		if _, err := store.Create(ctx, in); err != nil {
			return i, fmt.Errorf("seed report %d: %w", i, err)
		}
	}
	return len(DemoReports), nil
}
