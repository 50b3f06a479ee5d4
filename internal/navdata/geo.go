package navdata

import (
	"math"

	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/unit"

	"github.com/chrissnell/demandmonitor/internal/demand"
)

const kmPerNM = 1.852

// distanceNM is the ellipsoidal surface distance between a and b.
func distanceNM(a, b demand.Coordinate) float64 {
	if a == b {
		return 0
	}
	c1 := globe.Coord{Lat: unit.AngleFromDeg(a.Lat), Lon: unit.AngleFromDeg(a.Lon)}
	c2 := globe.Coord{Lat: unit.AngleFromDeg(b.Lat), Lon: unit.AngleFromDeg(b.Lon)}
	d := globe.Earth76.Distance(c1, c2) / kmPerNM
	if math.IsNaN(d) {
		return 0
	}
	return d
}

// courseDeg is the initial true course from a to b, 0-359.
func courseDeg(a, b demand.Coordinate) int {
	if a == b {
		return 0
	}
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return int(math.Round(math.Mod(deg+360, 360))) % 360
}
