// Package geo resolves customer addresses to coordinates and picks the
// nearest fulfillment site.
package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lon float64
	Lat float64
}

// Site is a fulfillment location with known coordinates.
type Site struct {
	ID    string
	Point Point
}

// Distance returns the great-circle distance between two points in
// kilometers (haversine formula).
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Nearest selects the site with the minimum distance to p. Ties are
// broken by first-seen order. The second return is the distance in km;
// ok is false when sites is empty.
func Nearest(p Point, sites []Site) (nearest Site, distanceKm float64, ok bool) {
	best := math.Inf(1)
	for _, s := range sites {
		d := Distance(p, s.Point)
		if d < best {
			best = d
			nearest = s
			ok = true
		}
	}
	return nearest, best, ok
}
