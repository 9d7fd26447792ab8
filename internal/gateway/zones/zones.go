// Package zones derives nearby land-use and facility zones from OpenStreetMap data.
package zones

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"

	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/geo"
)

// DefaultRadius is used when the caller gives no radius, in meters.
const DefaultRadius = 500.0

// tagKeys are the OSM keys a zone is derived from, in reporting order.
var tagKeys = []string{"landuse", "amenity", "building", "leisure", "highway", "shop"}

// Zone is a tagged OSM element near a query point.
type Zone struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	Distance float64           `json:"distance"`
	Area     float64           `json:"area"`
	Tags     map[string]string `json:"tags"`
}

// Client queries nearby zones through an Overpass Querier.
type Client struct {
	q Querier
}

// NewClient wraps q.
func NewClient(q Querier) *Client {
	return &Client{q: q}
}

// NearbyQuery builds the Overpass QL used by Nearby.
func NearbyQuery(at provider.Coordinates, radius float64) string {
	around := fmt.Sprintf("(around:%g,%g,%g)", radius, at.Lat, at.Lon)
	return `[out:json][timeout:30];
(
  way["landuse"]` + around + `;
  way["amenity"]` + around + `;
  way["building"]` + around + `;
  way["leisure"]` + around + `;
  way["highway"]` + around + `;
  node["amenity"]` + around + `;
  node["shop"]` + around + `;
);
out body;
>;
out skel qt;`
}

// Nearby returns zones within radius meters of at, nearest first. On provider failure
// it returns an empty, non-nil slice together with the error so callers can degrade.
func (c *Client) Nearby(ctx context.Context, at provider.Coordinates, radius float64) ([]Zone, error) {
	if radius <= 0 {
		radius = DefaultRadius
	}
	res, err := c.q.Query(ctx, NearbyQuery(at, radius))
	if err != nil {
		return []Zone{}, err
	}
	return Derive(res, at, radius), nil
}

// Derive turns an Overpass result into zones within radius of at, sorted by distance.
func Derive(res overpass.Result, at provider.Coordinates, radius float64) []Zone {
	origin := orb.Point{at.Lon, at.Lat}
	out := []Zone{}

	for _, n := range res.Nodes {
		if !hasZoneTag(n.Tags) || !located(n) {
			continue
		}
		z := newZone(n.ID, n.Tags)
		z.Distance = math.Round(geo.ApproxDistance(origin, orb.Point{n.Lon, n.Lat}))
		if z.Distance <= radius {
			out = append(out, z)
		}
	}

	for _, w := range res.Ways {
		if !hasZoneTag(w.Tags) {
			continue
		}
		pts := wayPoints(w)
		if len(pts) == 0 {
			continue
		}
		z := newZone(w.ID, w.Tags)
		z.Distance = math.Round(geo.ApproxDistance(origin, pts[0]))
		if len(pts) > 2 {
			z.Area = math.Round(geo.ShoelaceArea(pts))
		}
		if z.Distance <= radius {
			out = append(out, z)
		}
	}

	slices.SortFunc(out, func(a, b Zone) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// TypeOf picks the zone type from OSM tags: landuse, amenity and leisure values win
// in that order, then shop, highway and building map to fixed labels.
func TypeOf(tags map[string]string) string {
	switch {
	case tags["landuse"] != "":
		return tags["landuse"]
	case tags["amenity"] != "":
		return tags["amenity"]
	case tags["leisure"] != "":
		return tags["leisure"]
	case tags["shop"] != "":
		return "shop"
	case tags["highway"] != "":
		return "road"
	case tags["building"] != "":
		return "building"
	default:
		return "unknown"
	}
}

func newZone(id int64, tags map[string]string) Zone {
	z := Zone{ID: id, Type: TypeOf(tags), Tags: map[string]string{}}
	z.Name = tags["name"]
	if z.Name == "" {
		z.Name = tags["operator"]
	}
	for _, k := range tagKeys {
		if v := tags[k]; v != "" {
			z.Tags[k] = v
		}
	}
	return z
}

func hasZoneTag(tags map[string]string) bool {
	for _, k := range tagKeys {
		if tags[k] != "" {
			return true
		}
	}
	return false
}

// located treats 0,0 as unresolved, which is how skeleton-less node references decode.
func located(n *overpass.Node) bool {
	return n != nil && (n.Lat != 0 || n.Lon != 0)
}

func wayPoints(w *overpass.Way) []orb.Point {
	pts := make([]orb.Point, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if located(n) {
			pts = append(pts, orb.Point{n.Lon, n.Lat})
		}
	}
	return pts
}
