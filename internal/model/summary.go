package model

import "time"

// ImportSummary captures metrics from a single catalog import run.
type ImportSummary struct {
	ItemsPath        string
	RulesPath        string
	DocumentSHA256   string
	VersionID        int64
	ImportBatchID    string
	Versions         Versions
	ItemsRead        int64
	ItemsStaged      int64
	ItemsRejected    int64
	RulesInserted    int64
	VersionsPruned   int64
	Skipped          bool
	DurationStage    time.Duration
	DurationFinalize time.Duration
	DurationTotal    time.Duration
}

// MetricsSnapshot is a point-in-time view of pipeline metrics.
type MetricsSnapshot struct {
	TotalRequests int64            `json:"total_requests"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	Counters      map[string]int64 `json:"counters"`
	LastReloadAt  *time.Time       `json:"last_reload_at,omitempty"`
	Versions      Versions         `json:"versions"`
}
