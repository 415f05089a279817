// Package haversine is the workload the profiler ships with: random
// coordinate pairs, their great-circle distances, and an instrumented run
// that reads, parses and sums them.
package haversine

import "math"

// EarthRadius is the sphere radius, in kilometres, used for every distance.
const EarthRadius = 6372.8

// Pair is two points given as longitude (x) and latitude (y) in degrees
type Pair struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Distance returns the haversine distance of the pair on EarthRadius.
func (p Pair) Distance() float64 {
	return Distance(p.X0, p.Y0, p.X1, p.Y1, EarthRadius)
}

// Distance returns the great-circle distance between (x0, y0) and (x1, y1)
// on a sphere of the given radius.
func Distance(x0, y0, x1, y1, radius float64) float64 {
	lat1 := y0
	lat2 := y1
	lon1 := x0
	lon2 := x1

	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	lat1 = radians(lat1)
	lat2 = radians(lat2)

	a := square(math.Sin(dLat/2)) + math.Cos(lat1)*math.Cos(lat2)*square(math.Sin(dLon/2))
	c := 2 * math.Asin(math.Sqrt(a))

	return radius * c
}

func square(a float64) float64 {
	return a * a
}

func radians(degrees float64) float64 {
	return 0.01745329251994329577 * degrees
}
