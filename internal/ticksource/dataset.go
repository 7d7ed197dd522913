package ticksource

import (
	"path/filepath"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/idhash"
)

// Dataset describes a parsed file for the catalog. The ID is derived from the
// symbol, the file's base name and the tick range, so re-importing the same
// export yields the same dataset.
func (r *Result) Dataset(symbol, path string, createdAtMs int64) *domain.Dataset {
	d := &domain.Dataset{
		Symbol:     symbol,
		SourceFile: filepath.Base(path),
		Format:     string(r.Format),
		TickCount:  len(r.Ticks),
		CreatedAt:  createdAtMs,
	}
	if n := len(r.Ticks); n > 0 {
		d.FirstTickMs = r.Ticks[0].Timestamp
		d.LastTickMs = r.Ticks[n-1].Timestamp
	}
	d.DatasetID = idhash.ComputeDatasetID(d.Symbol, d.SourceFile, d.FirstTickMs, d.LastTickMs, d.TickCount)
	return d
}
