package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleprof/internal/clock"
	"cycleprof/internal/profiler"
)

// runScenarioA brackets a run of 5M cycles holding "read" (1M) and
// "parse" (3M), leaving 1M outside any region.
func runScenarioA(t *testing.T) *profiler.Session {
	t.Helper()
	clk := clock.NewManual(0, 1_000_000_000)
	s := profiler.NewSession(clk)

	s.Start()
	clk.Advance(500_000)
	func() {
		defer s.Begin("read").End()
		clk.Advance(1_000_000)
	}()
	func() {
		defer s.Begin("parse").End()
		clk.Advance(3_000_000)
	}()
	clk.Advance(500_000)
	s.Stop()
	return s
}

func TestReportFor_ScenarioA(t *testing.T) {
	s := runScenarioA(t)

	r, err := ReportFor(s)
	require.NoError(t, err)

	assert.Equal(t, s.ID().String(), r.SessionID)
	assert.Equal(t, uint64(5_000_000), r.Totals.Cycles)
	require.Len(t, r.Lines, 2)

	assert.Equal(t, "parse", r.Lines[0].Name)
	assert.Equal(t, uint64(3_000_000), r.Lines[0].Cycles)
	assert.InDelta(t, 60.0, r.Lines[0].Percentage, 1e-9)

	assert.Equal(t, "read", r.Lines[1].Name)
	assert.Equal(t, uint64(1_000_000), r.Lines[1].Cycles)
	assert.InDelta(t, 20.0, r.Lines[1].Percentage, 1e-9)

	assert.Equal(t, uint64(1_000_000), r.Unattributed)
	assert.InDelta(t, 20.0, r.UnattributedPercentage(), 1e-9)
}

func TestReportFor_NotStopped(t *testing.T) {
	s := profiler.NewSession(clock.NewManual(0, 1))
	_, err := ReportFor(s)
	assert.Error(t, err)
}

func TestBuildReport_InstantRegion(t *testing.T) {
	r := BuildReport(
		[]profiler.Entry{{Name: "instant", Count: 1, Cycles: 0}},
		profiler.Totals{Cycles: 100},
	)

	require.Len(t, r.Lines, 1)
	assert.Equal(t, uint64(1), r.Lines[0].Count)
	assert.Equal(t, 0.0, r.Lines[0].Percentage)
	assert.Equal(t, uint64(100), r.Unattributed)
}

func TestBuildReport_ZeroTotal(t *testing.T) {
	r := BuildReport([]profiler.Entry{{Name: "a", Count: 1, Cycles: 0}}, profiler.Totals{})

	assert.Equal(t, 0.0, r.Lines[0].Percentage)
	assert.Equal(t, 0.0, r.UnattributedPercentage())
}

func TestBuildReport_SortOrder(t *testing.T) {
	entries := []profiler.Entry{
		{Name: "b", Count: 1, Cycles: 50},
		{Name: "d", Count: 3, Cycles: 10},
		{Name: "a", Count: 2, Cycles: 50},
		{Name: "c", Count: 1, Cycles: 70},
	}

	r := BuildReport(entries, profiler.Totals{Cycles: 200})

	names := make([]string, 0, len(r.Lines))
	for i, l := range r.Lines {
		names = append(names, l.Name)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Lines[i-1].Cycles, l.Cycles)
		}
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names, "ties broken by name")
}

func TestBuildReport_PercentageClosure(t *testing.T) {
	clk := clock.NewManual(0, 1_000_000)
	s := profiler.NewSession(clk)

	s.Start()
	for i := 0; i < 7; i++ {
		func() {
			defer s.Begin("outer").End()
			clk.Advance(uint64(13 * (i + 1)))
			func() {
				defer s.Begin("inner").End()
				clk.Advance(uint64(29 + i))
			}()
		}()
		clk.Advance(17)
	}
	s.Stop()

	r, err := ReportFor(s)
	require.NoError(t, err)

	sum := r.UnattributedPercentage()
	for _, l := range r.Lines {
		sum += l.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestBuildReport_ParallelOverAttribution(t *testing.T) {
	r := BuildReport(
		[]profiler.Entry{{Name: "w1", Count: 1, Cycles: 80}, {Name: "w2", Count: 1, Cycles: 80}},
		profiler.Totals{Cycles: 100},
	)
	assert.Equal(t, uint64(0), r.Unattributed)
}

func TestReport_WriteTo(t *testing.T) {
	r := BuildReport(
		[]profiler.Entry{
			{Name: "read", Count: 1, Cycles: 1_000_000},
			{Name: "parse", Count: 2, Cycles: 3_000_000},
		},
		profiler.Totals{Cycles: 5_000_000, Frequency: 1_000_000_000},
	)

	var sb strings.Builder
	n, err := r.WriteTo(&sb)
	require.NoError(t, err)

	want := "Total time: 5.0000ms (CPU freq 1000000000)\n" +
		"\tparse[2]: 3000000 (60.00%)\n" +
		"\tread[1]: 1000000 (20.00%)\n"
	assert.Equal(t, want, sb.String())
	assert.Equal(t, int64(len(want)), n)
	assert.Equal(t, want, r.String())
}

func TestFindHotspots(t *testing.T) {
	r := BuildReport(
		[]profiler.Entry{
			{Name: "a", Count: 4, Cycles: 400},
			{Name: "b", Count: 1, Cycles: 300},
			{Name: "c", Count: 2, Cycles: 100},
		},
		profiler.Totals{Cycles: 1000, Frequency: 1_000_000},
	)

	all := FindHotspots(r, 0)
	require.Len(t, all, 3)
	assert.Equal(t, 100.0, all[0].AverageCycles)
	assert.InDelta(t, 0.4, all[0].Milliseconds, 1e-12)

	top := FindHotspots(r, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Name)
	assert.Equal(t, "b", top[1].Name)

	assert.Len(t, FindHotspots(r, 10), 3)
}

func TestFormatHotspot(t *testing.T) {
	out := FormatHotspot(Hotspot{Name: "parse", Count: 2, Cycles: 300, Percentage: 30, AverageCycles: 150, Milliseconds: 0.3}, 1)

	assert.Contains(t, out, "#1: parse\n")
	assert.Contains(t, out, "Cycles: 300 (30.00%)")
	assert.Contains(t, out, "Invocations: 2 (avg 150.0 cycles)")
	assert.Contains(t, out, "Time: 0.3000 ms")

	assert.NotContains(t, FormatHotspot(Hotspot{Name: "x"}, 2), "Time:")
}
