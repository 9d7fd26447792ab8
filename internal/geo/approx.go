// Package geo holds the flat-earth approximations shared by the zone gateway, the
// report proximity filter and the planning context builder.
//
// Every call site converts degrees to meters with the same constant on both axes. The
// longitude axis is not scaled by cos(latitude), so east-west distances are overstated
// by 1/cos(lat): about 12% at 27°N (Jaipur), 41% at 45°N. That is acceptable for the
// ~1 km neighbourhood filters this service runs, and keeping one function makes the
// error identical everywhere.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MetersPerDegree is the per-axis degree to meter factor.
const MetersPerDegree = 111000.0

// ApproxDistance returns the planar distance in meters between two lon/lat points.
func ApproxDistance(a, b orb.Point) float64 {
	dx := (a.Lon() - b.Lon()) * MetersPerDegree
	dy := (a.Lat() - b.Lat()) * MetersPerDegree
	return math.Sqrt(dx*dx + dy*dy)
}

// Within reports whether b lies strictly closer than radius meters to a.
func Within(a, b orb.Point, radius float64) bool {
	return ApproxDistance(a, b) < radius
}

// ShoelaceArea returns the area in square meters of the polygon outlined by pts. The
// ring is closed if needed. Fewer than three points yield 0.
func ShoelaceArea(pts []orb.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return planar.Area(orb.Polygon{ring}) * MetersPerDegree * MetersPerDegree
}

// OverpassBBox formats a bound as the "(south,west,north,east)" filter Overpass QL expects.
func OverpassBBox(b orb.Bound) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Bottom(), b.Left(), b.Top(), b.Right())
}
