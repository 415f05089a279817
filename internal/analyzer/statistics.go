package analyzer

import (
	"fmt"
	"sort"
)

// ProfileStatistics contains summary figures for one report
type ProfileStatistics struct {
	TotalCycles        uint64
	AttributedCycles   uint64
	UnattributedCycles uint64
	TotalMilliseconds  float64
	Frequency          uint64
	UniqueRegions      int
	TotalInvocations   uint64
	MaxStackDepth      int
	AverageCycles      float64 // Exclusive cycles per invocation over all regions
}

// ComputeStatistics calculates summary statistics for the report. maxDepth
// is the deepest region nesting the session observed.
func ComputeStatistics(r Report, maxDepth int) ProfileStatistics {
	stats := ProfileStatistics{
		TotalCycles:        r.Totals.Cycles,
		UnattributedCycles: r.Unattributed,
		TotalMilliseconds:  r.Totals.ElapsedMS(),
		Frequency:          r.Totals.Frequency,
		UniqueRegions:      len(r.Lines),
		MaxStackDepth:      maxDepth,
	}

	for _, l := range r.Lines {
		stats.AttributedCycles += l.Cycles
		stats.TotalInvocations += l.Count
	}

	if stats.TotalInvocations > 0 {
		stats.AverageCycles = float64(stats.AttributedCycles) / float64(stats.TotalInvocations)
	}

	return stats
}

// PerformanceIssue is one finding of DetectPerformanceIssues
type PerformanceIssue struct {
	Severity    string // "Critical", "High", "Medium", "Low"
	Category    string // e.g. "CPU Hotspot", "Hot Region"
	Description string
	Region      string
	Impact      float64 // % of total cycles or invocations
}

// Thresholds used by DetectPerformanceIssues.
const (
	criticalShare     = 20.0
	highShare         = 10.0
	hotRegionShare    = 80.0
	hotRegionMinCalls = 1000
	uncoveredShare    = 50.0
)

// DetectPerformanceIssues applies simple heuristics to the report
func DetectPerformanceIssues(r Report) []PerformanceIssue {
	issues := []PerformanceIssue{}

	for _, l := range r.Lines {
		if l.Percentage > criticalShare {
			issues = append(issues, PerformanceIssue{
				Severity:    "Critical",
				Category:    "CPU Hotspot",
				Description: fmt.Sprintf("Region consumes %.2f%% of total cycles", l.Percentage),
				Region:      l.Name,
				Impact:      l.Percentage,
			})
		} else if l.Percentage > highShare {
			issues = append(issues, PerformanceIssue{
				Severity:    "High",
				Category:    "CPU Hotspot",
				Description: fmt.Sprintf("Region consumes %.2f%% of total cycles", l.Percentage),
				Region:      l.Name,
				Impact:      l.Percentage,
			})
		}
	}

	// A region making up most invocations is likely called from a hot loop
	stats := ComputeStatistics(r, 0)
	if stats.TotalInvocations >= hotRegionMinCalls {
		for _, l := range r.Lines {
			share := float64(l.Count) / float64(stats.TotalInvocations) * 100.0
			if share > hotRegionShare {
				issues = append(issues, PerformanceIssue{
					Severity:    "Medium",
					Category:    "Hot Region",
					Description: fmt.Sprintf("Region accounts for %.2f%% of all %d invocations - likely in a hot loop", share, stats.TotalInvocations),
					Region:      l.Name,
					Impact:      share,
				})
			}
		}
	}

	if u := r.UnattributedPercentage(); u > uncoveredShare {
		issues = append(issues, PerformanceIssue{
			Severity:    "Low",
			Category:    "Low Coverage",
			Description: fmt.Sprintf("%.2f%% of the run is outside every named region", u),
			Impact:      u,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Impact > issues[j].Impact
	})

	return issues
}
