package mapview

import "github.com/urbanize/urbanize-backend/internal/reports"

const (
	LandUseSource = "landuse"
	LandUseLayer  = "landuse-fill"

	landUseFallback = "#6b7280"
	markerFallback  = "#3b82f6"
)

// landUseColors is ordered so the generated match expression is stable.
var landUseColors = []struct{ Category, Color string }{
	{"residential", "#3b82f6"},
	{"commercial", "#f97316"},
	{"industrial", "#ef4444"},
	{"grass", "#22c55e"},
	{"forest", "#15803d"},
	{"farmland", "#84cc16"},
	{"construction", "#dc2626"},
}

var markerColors = map[reports.Category]string{
	reports.Pothole:      "#ef4444",
	reports.Construction: "#f97316",
	reports.ParkIdea:     "#22c55e",
	reports.Traffic:      "#eab308",
}

// LandUseColor returns the fill color for a land-use category.
func LandUseColor(category string) string {
	for _, c := range landUseColors {
		if c.Category == category {
			return c.Color
		}
	}
	return landUseFallback
}

// MarkerColor returns the circle color for a report category.
func MarkerColor(c reports.Category) string {
	if col, ok := markerColors[c]; ok {
		return col
	}
	return markerFallback
}

// LandUseFillLayer describes the single fill layer over the land-use source. The
// fill color is a match expression on the feature's landuse property.
func LandUseFillLayer() Layer {
	match := []any{"match", []any{"get", "landuse"}}
	for _, c := range landUseColors {
		match = append(match, c.Category, c.Color)
	}
	match = append(match, landUseFallback)

	return Layer{
		ID:     LandUseLayer,
		Source: LandUseSource,
		Type:   "fill",
		Paint: map[string]any{
			"fill-color":         match,
			"fill-opacity":       0.45,
			"fill-outline-color": "#111827",
		},
	}
}

func markerLayer(h MarkerHandle) Layer {
	return Layer{
		ID:     h.LayerID,
		Source: h.SourceID,
		Type:   "circle",
		Paint: map[string]any{
			"circle-radius":       10,
			"circle-color":        MarkerColor(h.Category),
			"circle-stroke-width": 2,
			"circle-stroke-color": "white",
		},
	}
}
