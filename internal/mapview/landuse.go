package mapview

import (
	"cmp"
	"context"
	"slices"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/geo"
)

// GeometrySource supplies land-use polygons for a viewport.
type GeometrySource interface {
	LandUse(ctx context.Context, bbox orb.Bound) (*geojson.FeatureCollection, error)
}

// OverpassLandUse reads land-use and construction-site ways from Overpass.
type OverpassLandUse struct {
	q zones.Querier
}

func NewOverpassLandUse(q zones.Querier) *OverpassLandUse {
	return &OverpassLandUse{q: q}
}

// LandUseQuery builds the Overpass QL for bbox.
func LandUseQuery(bbox orb.Bound) string {
	b := "(" + geo.OverpassBBox(bbox) + ")"
	return `[out:json][timeout:25];
(
  way["landuse"]` + b + `;
  way["building"="construction"]` + b + `;
);
out body;
>;
out skel qt;`
}

func (s *OverpassLandUse) LandUse(ctx context.Context, bbox orb.Bound) (*geojson.FeatureCollection, error) {
	res, err := s.q.Query(ctx, LandUseQuery(bbox))
	if err != nil {
		return nil, err
	}
	return LandUseFeatures(res), nil
}

// LandUseFeatures converts ways with more than two resolved nodes into closed polygons,
// ordered by way id. Each feature carries a landuse property: the landuse tag, else
// "construction" for construction sites, else "unknown".
func LandUseFeatures(res overpass.Result) *geojson.FeatureCollection {
	ways := make([]*overpass.Way, 0, len(res.Ways))
	for _, w := range res.Ways {
		ways = append(ways, w)
	}
	slices.SortFunc(ways, func(a, b *overpass.Way) int { return cmp.Compare(a.ID, b.ID) })

	fc := geojson.NewFeatureCollection()
	for _, w := range ways {
		ring := make(orb.Ring, 0, len(w.Nodes)+1)
		for _, n := range w.Nodes {
			if n != nil && (n.Lat != 0 || n.Lon != 0) {
				ring = append(ring, orb.Point{n.Lon, n.Lat})
			}
		}
		if len(ring) <= 2 {
			continue
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = w.ID
		f.Properties["landuse"] = landUseOf(w.Tags)
		if v := w.Tags["building"]; v != "" {
			f.Properties["building"] = v
		}
		if v := w.Tags["name"]; v != "" {
			f.Properties["name"] = v
		}
		fc.Append(f)
	}
	return fc
}

func landUseOf(tags map[string]string) string {
	switch {
	case tags["landuse"] != "":
		return tags["landuse"]
	case tags["building"] == "construction":
		return "construction"
	default:
		return "unknown"
	}
}
