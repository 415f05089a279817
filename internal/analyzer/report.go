package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"cycleprof/internal/profiler"
)

// Line represents one region in a report
type Line struct {
	Name       string
	Count      uint64  // Number of invocations
	Cycles     uint64  // Exclusive cycles over all invocations
	Percentage float64 // Share of the session's total cycles
}

// Report is the ranked cost breakdown of one session
type Report struct {
	SessionID    string
	Totals       profiler.Totals
	Lines        []Line // Sorted by Cycles descending, then Name
	Unattributed uint64 // Root cycles not inside any region
}

// BuildReport ranks entries by exclusive cycles (descending, ties by name)
// and computes each one's share of totals.Cycles.
func BuildReport(entries []profiler.Entry, totals profiler.Totals) Report {
	lines := make([]Line, 0, len(entries))
	var attributed uint64

	for _, e := range entries {
		lines = append(lines, Line{
			Name:       e.Name,
			Count:      e.Count,
			Cycles:     e.Cycles,
			Percentage: percentOf(e.Cycles, totals.Cycles),
		})
		attributed += e.Cycles
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Cycles != lines[j].Cycles {
			return lines[i].Cycles > lines[j].Cycles
		}
		return lines[i].Name < lines[j].Name
	})

	r := Report{Totals: totals, Lines: lines}
	// threads running in parallel can attribute more than the root window
	if attributed < totals.Cycles {
		r.Unattributed = totals.Cycles - attributed
	}
	return r
}

// ReportFor builds the report of a stopped session.
func ReportFor(s *profiler.Session) (Report, error) {
	totals, ok := s.Totals()
	if !ok {
		return Report{}, fmt.Errorf("session %s has not been stopped", s.ID())
	}
	r := BuildReport(s.Entries(), totals)
	r.SessionID = s.ID().String()
	return r, nil
}

// UnattributedPercentage returns the share of the root window spent outside
// every region.
func (r Report) UnattributedPercentage() float64 {
	return percentOf(r.Unattributed, r.Totals.Cycles)
}

// WriteTo prints the report: a header with the elapsed time and the cycle
// frequency, then one line per region.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Total time: %.4fms (CPU freq %d)\n", r.Totals.ElapsedMS(), r.Totals.Frequency)
	for _, l := range r.Lines {
		fmt.Fprintf(&buf, "\t%s[%d]: %d (%.2f%%)\n", l.Name, l.Count, l.Cycles, l.Percentage)
	}

	return buf.WriteTo(w)
}

// String returns the text WriteTo prints.
func (r Report) String() string {
	var sb strings.Builder
	r.WriteTo(&sb)
	return sb.String()
}

// Hotspot represents a region ranked by its exclusive cost
type Hotspot struct {
	Name          string
	Count         uint64
	Cycles        uint64
	Percentage    float64
	AverageCycles float64 // Exclusive cycles per invocation
	Milliseconds  float64 // Exclusive time at the session frequency
}

// FindHotspots returns the topN most expensive regions of the report.
// topN <= 0 returns all of them.
func FindHotspots(r Report, topN int) []Hotspot {
	hotspots := make([]Hotspot, 0, len(r.Lines))
	for _, l := range r.Lines {
		hs := Hotspot{
			Name:       l.Name,
			Count:      l.Count,
			Cycles:     l.Cycles,
			Percentage: l.Percentage,
		}
		if l.Count > 0 {
			hs.AverageCycles = float64(l.Cycles) / float64(l.Count)
		}
		if r.Totals.Frequency > 0 {
			hs.Milliseconds = float64(l.Cycles) / float64(r.Totals.Frequency) * 1000.0
		}
		hotspots = append(hotspots, hs)
	}

	if topN > 0 && topN < len(hotspots) {
		return hotspots[:topN]
	}
	return hotspots
}

// FormatHotspot returns a human-readable string representation of a hotspot
func FormatHotspot(hs Hotspot, rank int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d: %s\n", rank, hs.Name))
	sb.WriteString(fmt.Sprintf("    Cycles: %d (%.2f%%)\n", hs.Cycles, hs.Percentage))
	sb.WriteString(fmt.Sprintf("    Invocations: %d (avg %.1f cycles)\n", hs.Count, hs.AverageCycles))
	if hs.Milliseconds > 0 {
		sb.WriteString(fmt.Sprintf("    Time: %.4f ms\n", hs.Milliseconds))
	}

	return sb.String()
}

func percentOf(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100.0
}
