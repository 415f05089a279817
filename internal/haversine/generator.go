package haversine

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
)

// Method selects how generated points are spread over the globe.
type Method string

const (
	// Uniform draws every coordinate independently over the whole globe.
	Uniform Method = "uniform"
	// Cluster draws points around a small set of random centres.
	Cluster Method = "cluster"
)

// clusterCount is how many centres Cluster uses; clusterSpread is the
// maximum offset, in degrees, of a point from its centre.
const (
	clusterCount  = 64
	clusterSpread = 10.0
)

// ParseMethod returns the Method named s.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case Uniform, Cluster:
		return Method(s), nil
	case "":
		return Cluster, nil
	}
	return "", fmt.Errorf("unknown method %q (want %q or %q)", s, Uniform, Cluster)
}

// Generator produces reproducible pairs from a seed.
type Generator struct {
	rng     *rand.Rand
	method  Method
	centres [][2]float64
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(method Method, seed uint64) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		method: method,
	}
	if method == Cluster {
		g.centres = make([][2]float64, clusterCount)
		for i := range g.centres {
			g.centres[i] = [2]float64{g.between(-180, 180), g.between(-90, 90)}
		}
	}
	return g
}

// Generate returns n pairs.
func (g *Generator) Generate(n int) []Pair {
	pairs := make([]Pair, n)
	for i := range pairs {
		x0, y0 := g.point()
		x1, y1 := g.point()
		pairs[i] = Pair{X0: x0, Y0: y0, X1: x1, Y1: y1}
	}
	return pairs
}

func (g *Generator) point() (float64, float64) {
	if g.method != Cluster {
		return g.between(-180, 180), g.between(-90, 90)
	}
	c := g.centres[g.rng.IntN(len(g.centres))]
	x := clamp(c[0]+g.between(-clusterSpread, clusterSpread), -180, 180)
	y := clamp(c[1]+g.between(-clusterSpread, clusterSpread), -90, 90)
	return x, y
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// Distances returns each pair's distance and their mean.
func Distances(pairs []Pair) ([]float64, float64) {
	distances := make([]float64, len(pairs))
	var sum float64
	for i, p := range pairs {
		distances[i] = p.Distance()
		sum += distances[i]
	}
	if len(pairs) == 0 {
		return distances, 0
	}
	return distances, sum / float64(len(pairs))
}

type document struct {
	Pairs []Pair `json:"pairs"`
}

// WritePairs encodes pairs as the document ParsePairs reads.
func WritePairs(w io.Writer, pairs []Pair) error {
	if pairs == nil {
		pairs = []Pair{}
	}
	return json.NewEncoder(w).Encode(document{Pairs: pairs})
}
