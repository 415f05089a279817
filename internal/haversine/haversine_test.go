package haversine

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleprof/internal/clock"
	"cycleprof/internal/profiler"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 float64
		want           float64
	}{
		{"same point", 12.5, -40, 12.5, -40, 0},
		{"quarter meridian", 0, 0, 0, 90, EarthRadius * math.Pi / 2},
		{"half equator", 0, 0, 180, 0, EarthRadius * math.Pi},
		{"antipodes", -90, 45, 90, -45, EarthRadius * math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.x0, tt.y0, tt.x1, tt.y1, EarthRadius), 1e-6)
		})
	}
}

func TestParsePairs(t *testing.T) {
	doc := []byte(`{"pairs": [
		{"x0": 1.5, "y0": -2, "x1": 170.25, "y1": 89.9},
		{"y1": 1e-3, "x1": -180, "y0": 0, "x0": 3}
	]}`)

	pairs, err := ParsePairs(doc)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{X0: 1.5, Y0: -2, X1: 170.25, Y1: 89.9}, pairs[0])
	assert.Equal(t, Pair{X0: 3, Y0: 0, X1: -180, Y1: 0.001}, pairs[1])
}

func TestParsePairs_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		malformed bool
	}{
		{"unknown key", `{"pairs": [{"x0": 1, "y0": 2, "x1": 3, "z": 4}]}`, true},
		{"missing key", `{"pairs": [{"x0": 1, "y0": 2, "x1": 3}]}`, true},
		{"string value", `{"pairs": [{"x0": "1", "y0": 2, "x1": 3, "y1": 4}]}`, true},
		{"not an object", `{"pairs": [1, 2]}`, true},
		{"no pairs key", `{"points": []}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePairs([]byte(tt.doc))
			require.Error(t, err)
			if tt.malformed {
				assert.ErrorIs(t, err, ErrMalformedPair)
			}
		})
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	for _, m := range []Method{Uniform, Cluster} {
		t.Run(string(m), func(t *testing.T) {
			a := NewGenerator(m, 42).Generate(500)
			b := NewGenerator(m, 42).Generate(500)
			c := NewGenerator(m, 43).Generate(500)

			assert.Equal(t, a, b)
			assert.NotEqual(t, a, c)

			for _, p := range a {
				for _, x := range []float64{p.X0, p.X1} {
					assert.True(t, x >= -180 && x <= 180, "longitude %v out of range", x)
				}
				for _, y := range []float64{p.Y0, p.Y1} {
					assert.True(t, y >= -90 && y <= 90, "latitude %v out of range", y)
				}
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("uniform")
	require.NoError(t, err)
	assert.Equal(t, Uniform, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, Cluster, m)

	_, err = ParseMethod("spiral")
	assert.Error(t, err)
}

func TestWritePairs_ReadBack(t *testing.T) {
	pairs := NewGenerator(Uniform, 7).Generate(25)

	var buf bytes.Buffer
	require.NoError(t, WritePairs(&buf, pairs))

	got, err := ParsePairs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, pairs, got)
}

func TestReadReferenceMean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnswers(&buf, []float64{1, 2, 3}, 2))
	assert.Equal(t, 32, buf.Len())

	mean, err := ReadReferenceMean(bytes.NewReader(buf.Bytes()), 3)
	require.NoError(t, err)
	assert.Equal(t, 2.0, mean)

	_, err = ReadReferenceMean(bytes.NewReader(buf.Bytes()), 4)
	assert.Error(t, err, "asking for more pairs than written")
}

func writeInputs(t *testing.T, n int) (string, string, float64) {
	t.Helper()
	dir := t.TempDir()
	pairs := NewGenerator(Cluster, 1).Generate(n)
	distances, mean := Distances(pairs)

	var in, ans bytes.Buffer
	require.NoError(t, WritePairs(&in, pairs))
	require.NoError(t, WriteAnswers(&ans, distances, mean))

	jsonPath := filepath.Join(dir, "input.json")
	answerPath := filepath.Join(dir, "answers.f64")
	require.NoError(t, os.WriteFile(jsonPath, in.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(answerPath, ans.Bytes(), 0o644))
	return jsonPath, answerPath, mean
}

func TestRun(t *testing.T) {
	jsonPath, answerPath, mean := writeInputs(t, 100)
	s := profiler.NewSession(clock.NewManual(0, 1_000_000))

	s.Start()
	res, err := Run(context.Background(), s.Main(), RunOptions{JSONPath: jsonPath, AnswerPath: answerPath})
	s.Stop()
	require.NoError(t, err)

	assert.Equal(t, 100, res.PairCount)
	assert.Greater(t, res.InputSize, 0)
	assert.True(t, res.HasReference)
	assert.InDelta(t, mean, res.Mean, 1e-9)
	assert.InDelta(t, 0, res.Difference(), 1e-9)

	for _, name := range []string{"read", "parse", "sum", "validate"} {
		e, ok := s.Aggregator().Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, uint64(1), e.Count, name)
	}
	assert.Equal(t, 0, s.Main().Depth())
}

func TestRun_Workers(t *testing.T) {
	jsonPath, _, mean := writeInputs(t, 101)
	s := profiler.NewSession(clock.NewManual(0, 1_000_000))

	res, err := Run(context.Background(), s.Main(), RunOptions{JSONPath: jsonPath, Workers: 4})
	require.NoError(t, err)

	assert.InDelta(t, mean, res.Mean, 1e-9)
	assert.False(t, res.HasReference)

	chunks, ok := s.Aggregator().Lookup("sum_chunk")
	require.True(t, ok)
	assert.Equal(t, uint64(4), chunks.Count)
	_, ok = s.Aggregator().Lookup("validate")
	assert.False(t, ok)
}

func TestRun_MissingFile(t *testing.T) {
	s := profiler.NewSession(clock.NewManual(0, 1_000_000))

	_, err := Run(context.Background(), s.Main(), RunOptions{JSONPath: filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)

	e, ok := s.Aggregator().Lookup("read")
	require.True(t, ok, "a failed read is still measured")
	assert.Equal(t, uint64(1), e.Count)
	assert.Equal(t, 0, s.Main().Depth())
}

func TestRun_BadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `{"pairs": [{"x0": 1}]}`, ErrMalformedPair},
		{"empty", `{"pairs": []}`, ErrNoPairs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "input.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			s := profiler.NewSession(clock.NewManual(0, 1_000_000))

			_, err := Run(context.Background(), s.Main(), RunOptions{JSONPath: path})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProfile(t *testing.T) {
	jsonPath, _, _ := writeInputs(t, 10)

	s, res, err := Profile(context.Background(), clock.NewManual(0, 1_000_000), ProfileOptions{
		RunOptions: RunOptions{JSONPath: jsonPath},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.PairCount)

	_, stopped := s.Totals()
	assert.True(t, stopped)
	assert.Equal(t, 3, s.Aggregator().Len())
}

// faultyClock panics on its failAt-th cycle read and behaves like the
// embedded manual clock otherwise.
type faultyClock struct {
	*clock.Manual
	reads, failAt int
}

var errCounterFault = errors.New("counter fault")

func (c *faultyClock) Cycles() uint64 {
	c.reads++
	if c.reads == c.failAt {
		panic(errCounterFault)
	}
	return c.Manual.Cycles()
}

func TestProfile_PanicHaltsSession(t *testing.T) {
	jsonPath, _, _ := writeInputs(t, 10)

	// reads: Start, Begin("read"), then End("read") fails
	clk := &faultyClock{Manual: clock.NewManual(0, 1_000_000), failAt: 3}
	s := profiler.NewSession(clk)
	s.Start()

	assert.PanicsWithValue(t, errCounterFault, func() {
		_, _ = runSession(context.Background(), s, RunOptions{JSONPath: jsonPath})
	})

	_, stopped := s.Totals()
	assert.True(t, stopped, "root window closed before the panic escaped")
	assert.Equal(t, 1, s.Main().Depth())
	assert.Equal(t, 0, s.Aggregator().Len())
}

func TestWriteDataset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	ds, err := WriteDataset(dir, Uniform, 9, 50)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "haversine_50_input.json"), ds.JSONPath)
	assert.Equal(t, filepath.Join(dir, "haversine_50_data.f64"), ds.AnswerPath)

	s := profiler.NewSession(clock.NewManual(0, 1_000_000))
	res, err := Run(context.Background(), s.Main(), RunOptions{JSONPath: ds.JSONPath, AnswerPath: ds.AnswerPath})
	require.NoError(t, err)
	assert.Equal(t, 50, res.PairCount)
	assert.InDelta(t, ds.Mean, res.ReferenceMean, 0)
	assert.InDelta(t, 0, res.Difference(), 1e-9)
}

func TestResult_String(t *testing.T) {
	plain := Result{InputSize: 10, PairCount: 2, Mean: 1.5}
	assert.Equal(t, "RESULTS\ninput size: 10\nPair count: 2\nHaversine mean: 1.5\n", plain.String())

	validated := Result{InputSize: 10, PairCount: 2, Mean: 1.5, HasReference: true, ReferenceMean: 1.25}
	assert.Contains(t, validated.String(), "VALIDATION\nReference mean: 1.25\nDifference: 0.25\n")
}
