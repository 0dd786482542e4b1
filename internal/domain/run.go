package domain

import "time"

// RunSummary describes one resolution run end to end. The engine produces
// it; the store keeps the most recent one for inspection tooling.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	Generation     uint64        `json:"generation,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	DurationMS     int64         `json:"duration_ms"`
	Records        int           `json:"records"`
	Buckets        int           `json:"buckets"`
	LargestBucket  int           `json:"largest_bucket,omitempty"`
	OverflowSize   int           `json:"overflow_size,omitempty"`
	CandidatePairs int           `json:"candidate_pairs"`
	Edges          int           `json:"edges"`
	GoldenRecords  int           `json:"golden_records"`
	Singletons     int           `json:"singletons"`
	MergedClusters int           `json:"merged_clusters"`
	Degraded       bool          `json:"degraded"`
	Phases         []PhaseTiming `json:"phases,omitempty"`
}

// PhaseTiming is the wall-clock cost of one pipeline phase.
type PhaseTiming struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
}
