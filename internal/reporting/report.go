package reporting

import "time"

// Report summarizes stored headless runs per dataset.
type Report struct {
	GeneratedAt  time.Time
	DatasetCount int
	RunCount     int

	// Datasets sorted by first tick, then dataset_id.
	Datasets []DatasetRow

	// Runs sorted by dataset (in Datasets order), then started_at.
	Runs []RunRow

	// Best lists the highest realized P&L run of each dataset that has runs.
	Best []RunRow
}

// DatasetRow describes one catalogued tick file.
type DatasetRow struct {
	DatasetID   string
	Symbol      string
	SourceFile  string
	Format      string
	TickCount   int
	FirstTickMs int64
	LastTickMs  int64
	Runs        int
}

// RunRow is one stored run.
type RunRow struct {
	RunID        string
	DatasetID    string
	Timeframe    string
	Plan         string
	RoundTrips   int
	WinRate      float64
	RealizedPnl  float64
	ProfitFactor float64 // +Inf when there were no losses
	MaxDrawdown  float64
	Expectancy   float64
	SharpeRatio  float64
	StartedAt    int64 // ms
}
