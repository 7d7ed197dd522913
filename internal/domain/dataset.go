package domain

// Dataset is a catalogued tick file.
// Corresponds to datasets table in PostgreSQL; ticks live in ClickHouse.
type Dataset struct {
	DatasetID   string `json:"dataset_id"` // deterministic hash, see idhash.ComputeDatasetID
	Symbol      string `json:"symbol"`
	SourceFile  string `json:"source_file"` // base name of the imported file
	Format      string `json:"format"`      // tick file format code
	FirstTickMs int64  `json:"first_tick_ms"`
	LastTickMs  int64  `json:"last_tick_ms"`
	TickCount   int    `json:"tick_count"`
	CreatedAt   int64  `json:"created_at"` // ms
}

// RunSummary records the outcome of one headless replay run.
// Corresponds to replay_runs table in PostgreSQL.
type RunSummary struct {
	RunID       string           `json:"run_id"` // uuid
	DatasetID   string           `json:"dataset_id"`
	Timeframe   Timeframe        `json:"timeframe"`
	Plan        string           `json:"plan"` // order plan as given on the command line
	OrderConfig OrderConfig      `json:"order_config"`
	Stats       TradeStats       `json:"stats"`
	Analytics   SessionAnalytics `json:"analytics"`
	StartedAt   int64            `json:"started_at"`   // ms
	CompletedAt int64            `json:"completed_at"` // ms
}
