package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"cycleprof/internal/analyzer"
	"cycleprof/internal/clock"
	"cycleprof/internal/config"
	"cycleprof/internal/haversine"
	"cycleprof/internal/logging"
	"cycleprof/internal/metrics"
	"cycleprof/internal/profiler"
)

// sessionCache holds completed sessions by id, evicting the oldest once it
// holds limit sessions. Evicted and dropped sessions are closed.
type sessionCache struct {
	mu       sync.Mutex
	limit    int
	order    []string
	sessions map[string]*profiler.Session
}

func newSessionCache(limit int) *sessionCache {
	return &sessionCache{limit: limit, sessions: make(map[string]*profiler.Session)}
}

// put stores s and returns the sessions evicted to make room for it.
func (c *sessionCache) put(s *profiler.Session) []*profiler.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := s.ID().String()
	if _, ok := c.sessions[id]; ok {
		c.remove(id)
	}

	var evicted []*profiler.Session
	for len(c.order) >= c.limit && len(c.order) > 0 {
		old := c.sessions[c.order[0]]
		c.remove(c.order[0])
		old.Close()
		evicted = append(evicted, old)
	}

	c.sessions[id] = s
	c.order = append(c.order, id)
	return evicted
}

func (c *sessionCache) get(id string) (*profiler.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

func (c *sessionCache) drop(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		return false
	}
	c.remove(id)
	s.Close()
	return true
}

func (c *sessionCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// remove must be called with mu held.
func (c *sessionCache) remove(id string) {
	delete(c.sessions, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// toolServer carries what the tool handlers share
type toolServer struct {
	clock  clock.Clock
	cfg    config.Config
	logger zerolog.Logger
	cache  *sessionCache
}

func main() {
	cfg, err := config.Load(os.Getenv("CYCLEPROF_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "cycleprof-mcp: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Stderr(cfg.LogLevel, "mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "cycleprof-mcp: %v\n", err)
		os.Exit(1)
	}

	clk, err := clock.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot measure on this host")
	}

	ts := &toolServer{
		clock:  clk,
		cfg:    cfg,
		logger: logger,
		cache:  newSessionCache(cfg.MaxSessions),
	}

	s := server.NewMCPServer(
		"cycleprof",
		"1.0.0",
		server.WithLogging(),
	)
	ts.register(s)

	logger.Info().Str("cycle_source", clk.Source()).Msg("serving on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func (ts *toolServer) register(s *server.MCPServer) {
	// Tool 1: Calibrate Clock
	calibrateTool := mcp.NewTool("calibrate_clock",
		mcp.WithDescription("Estimate the CPU cycle counter frequency by busy-waiting against the OS reference timer."),
		mcp.WithNumber("window_ms",
			mcp.Description("Calibration window in milliseconds (default: configured calibrate_ms, 1000)"),
		),
	)
	s.AddTool(calibrateTool, ts.calibrateClock)

	// Tool 2: Generate Pairs
	generateTool := mcp.NewTool("generate_pairs",
		mcp.WithDescription("Generate random coordinate pairs and their reference haversine answers for profiling runs."),
		mcp.WithString("output_dir",
			mcp.Required(),
			mcp.Description("Directory receiving haversine_<count>_input.json and haversine_<count>_data.f64"),
		),
		mcp.WithNumber("count",
			mcp.Required(),
			mcp.Description("Number of pairs to generate"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Random seed (default: 1)"),
		),
		mcp.WithString("method",
			mcp.Description("Point distribution: uniform or cluster (default: cluster)"),
		),
	)
	s.AddTool(generateTool, ts.generatePairs)

	// Tool 3: Profile Haversine
	profileTool := mcp.NewTool("profile_haversine",
		mcp.WithDescription("Run the instrumented haversine workload on a pairs file and return the cycle cost report. The session id in the result is used by the analysis tools."),
		mcp.WithString("json_path",
			mcp.Required(),
			mcp.Description("Absolute path to the pairs JSON file"),
		),
		mcp.WithString("answer_path",
			mcp.Description("Optional path to the .f64 answers file for validation"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Goroutines summing distances (default: configured workers)"),
		),
	)
	s.AddTool(profileTool, ts.profileHaversine)

	// Tool 4: Find Hotspots
	hotspotsTool := mcp.NewTool("find_hotspots",
		mcp.WithDescription("List the regions with the most exclusive cycles in a profiled session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by profile_haversine"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of regions to return (default: 10)"),
		),
	)
	s.AddTool(hotspotsTool, ts.findHotspots)

	// Tool 5: Get Statistics
	statisticsTool := mcp.NewTool("get_statistics",
		mcp.WithDescription("Summary statistics of a profiled session: total, attributed and unattributed cycles, invocation counts, stack depth."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by profile_haversine"),
		),
	)
	s.AddTool(statisticsTool, ts.getStatistics)

	// Tool 6: Detect Performance Issues
	issuesTool := mcp.NewTool("detect_performance_issues",
		mcp.WithDescription("Flag regions that dominate cycles or invocations, and runs mostly outside named regions."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by profile_haversine"),
		),
	)
	s.AddTool(issuesTool, ts.detectIssues)

	// Tool 7: Export Metrics
	exportTool := mcp.NewTool("export_metrics",
		mcp.WithDescription("Export a profiled session's region aggregates in the Prometheus text format."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by profile_haversine"),
		),
	)
	s.AddTool(exportTool, ts.exportMetrics)

	// Tool 8: Drop Session
	dropTool := mcp.NewTool("drop_session",
		mcp.WithDescription("Discard a cached profiling session and free its slot."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by profile_haversine"),
		),
	)
	s.AddTool(dropTool, ts.dropSession)
}

func (ts *toolServer) calibrateClock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	windowMS := ts.cfg.CalibrateMS
	if windowMS == 0 {
		windowMS = clock.DefaultCalibrationMS
	}
	if n := request.GetFloat("window_ms", 0); n > 0 {
		windowMS = uint64(n)
	}

	cal := clock.Calibrate(ts.clock, windowMS)
	ts.logger.Info().Uint64("window_ms", windowMS).Uint64("frequency", cal.Frequency).Msg("calibrated")

	var sb strings.Builder
	sb.WriteString("CYCLE COUNTER CALIBRATION\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")
	sb.WriteString(cal.String())

	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) generatePairs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := request.RequireString("output_dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, err := request.RequireFloat("count")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if count < 1 {
		return mcp.NewToolResultError("count must be at least 1"), nil
	}
	method, err := haversine.ParseMethod(request.GetString("method", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seed := uint64(request.GetFloat("seed", 1))

	out, err := haversine.WriteDataset(dir, method, seed, int(count))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate pairs: %v", err)), nil
	}

	result := fmt.Sprintf(`Pairs generated.

Method: %s
Pair count: %d
Expected mean: %v
Input: %s
Answers: %s
`, method, out.PairCount, out.Mean, out.JSONPath, out.AnswerPath)

	return mcp.NewToolResultText(result), nil
}

func (ts *toolServer) profileHaversine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonPath, err := request.RequireString("json_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workers := ts.cfg.Workers
	if n := request.GetFloat("workers", 0); n >= 1 {
		workers = int(n)
	}

	s, res, err := haversine.Profile(ctx, ts.clock, haversine.ProfileOptions{
		RunOptions: haversine.RunOptions{
			JSONPath:   filepath.Clean(jsonPath),
			AnswerPath: request.GetString("answer_path", ""),
			Workers:    workers,
		},
		CalibrateMS: ts.cfg.CalibrateMS,
		Logger:      ts.logger,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Profiling run failed: %v", err)), nil
	}
	for _, old := range ts.cache.put(s) {
		ts.logger.Debug().Str("session", old.ID().String()).Msg("session evicted")
	}

	report, err := analyzer.ReportFor(s)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session: %s\n\n", s.ID()))
	sb.WriteString(res.String())
	sb.WriteString("\n")
	sb.WriteString(report.String())

	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) findHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, report, errResult := ts.sessionReport(request)
	if errResult != nil {
		return errResult, nil
	}

	topN := int(request.GetFloat("top_n", 10))
	hotspots := analyzer.FindHotspots(report, topN)

	var sb strings.Builder
	sb.WriteString("TOP REGIONS BY EXCLUSIVE CYCLES\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(hotspots) == 0 {
		sb.WriteString("No regions recorded.\n")
	} else {
		for i, hs := range hotspots {
			sb.WriteString(analyzer.FormatHotspot(hs, i+1))
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Unattributed: %d cycles (%.2f%%)\n", report.Unattributed, report.UnattributedPercentage()))

	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) getStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, report, errResult := ts.sessionReport(request)
	if errResult != nil {
		return errResult, nil
	}
	stats := analyzer.ComputeStatistics(report, s.MaxDepth())

	var sb strings.Builder
	sb.WriteString("SESSION STATISTICS\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	sb.WriteString(fmt.Sprintf("Total Time: %.4f ms\n", stats.TotalMilliseconds))
	sb.WriteString(fmt.Sprintf("Cycle Frequency: %d Hz\n", stats.Frequency))
	sb.WriteString(fmt.Sprintf("Total Cycles: %d\n", stats.TotalCycles))
	sb.WriteString(fmt.Sprintf("  Attributed: %d\n", stats.AttributedCycles))
	sb.WriteString(fmt.Sprintf("  Unattributed: %d\n\n", stats.UnattributedCycles))

	sb.WriteString("Regions:\n")
	sb.WriteString(fmt.Sprintf("  Unique: %d\n", stats.UniqueRegions))
	sb.WriteString(fmt.Sprintf("  Invocations: %d\n", stats.TotalInvocations))
	sb.WriteString(fmt.Sprintf("  Average: %.1f cycles per invocation\n", stats.AverageCycles))
	sb.WriteString(fmt.Sprintf("  Maximum Nesting: %d\n", stats.MaxStackDepth))

	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) detectIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, report, errResult := ts.sessionReport(request)
	if errResult != nil {
		return errResult, nil
	}

	issues := analyzer.DetectPerformanceIssues(report)

	var sb strings.Builder
	sb.WriteString("AUTOMATED PERFORMANCE ISSUE DETECTION\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(issues) == 0 {
		sb.WriteString("No significant performance issues detected.\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	counts := make(map[string]int)
	for i, issue := range issues {
		counts[issue.Severity]++
		sb.WriteString(fmt.Sprintf("%d. [%s/%s] %s\n", i+1, issue.Severity, issue.Category, issue.Description))
		if issue.Region != "" {
			sb.WriteString(fmt.Sprintf("   Region: %s\n", issue.Region))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("SUMMARY:\n")
	for _, severity := range []string{"Critical", "High", "Medium", "Low"} {
		sb.WriteString(fmt.Sprintf("   %s: %d\n", severity, counts[severity]))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) exportMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, _, errResult := ts.sessionReport(request)
	if errResult != nil {
		return errResult, nil
	}

	var sb strings.Builder
	if err := metrics.Export(&sb, s, "cycleprof"); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to export metrics: %v", err)), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (ts *toolServer) dropSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ts.cache.drop(id) {
		return mcp.NewToolResultError("Session not found"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s dropped. %d sessions cached.\n", id, ts.cache.size())), nil
}

// sessionReport resolves the session_id argument to its session and report.
// A non-nil result is the error to hand back to the client.
func (ts *toolServer) sessionReport(request mcp.CallToolRequest) (*profiler.Session, analyzer.Report, *mcp.CallToolResult) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, analyzer.Report{}, mcp.NewToolResultError(err.Error())
	}
	s, ok := ts.cache.get(id)
	if !ok {
		return nil, analyzer.Report{}, mcp.NewToolResultError("Session not found. Use profile_haversine first")
	}
	report, err := analyzer.ReportFor(s)
	if err != nil {
		return nil, analyzer.Report{}, mcp.NewToolResultError(err.Error())
	}
	return s, report, nil
}
