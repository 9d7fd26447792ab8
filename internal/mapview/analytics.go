package mapview

import (
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// Snapshot is the area per land-use group, in square meters, for one rendered viewport.
type Snapshot struct {
	Residential  float64 `json:"residential"`
	Commercial   float64 `json:"commercial"`
	Industrial   float64 `json:"industrial"`
	Green        float64 `json:"green"`
	Construction float64 `json:"construction"`
	Total        float64 `json:"total"`
}

// AreaFeature is one polygon's category and area.
type AreaFeature struct {
	Category string
	Area     float64
}

// Summarize groups feature areas. Grass, forest and farmland count as green; any
// other unlisted category only adds to Total.
func Summarize(features []AreaFeature) Snapshot {
	var s Snapshot
	for _, f := range features {
		switch f.Category {
		case "residential":
			s.Residential += f.Area
		case "commercial":
			s.Commercial += f.Area
		case "industrial":
			s.Industrial += f.Area
		case "grass", "forest", "farmland":
			s.Green += f.Area
		case "construction":
			s.Construction += f.Area
		}
		s.Total += f.Area
	}
	return s
}

// AreaFeatures measures every feature with a geodesic area. Features without a
// geometry are skipped.
func AreaFeatures(fc *geojson.FeatureCollection) []AreaFeature {
	if fc == nil {
		return nil
	}
	out := make([]AreaFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		cat, _ := f.Properties["landuse"].(string)
		out = append(out, AreaFeature{Category: cat, Area: geo.Area(f.Geometry)})
	}
	return out
}
