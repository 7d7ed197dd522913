package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeDatasetID computes a deterministic dataset_id using SHA256.
// Formula: SHA256(symbol|source_file|first_tick_ms|last_tick_ms|tick_count)
// Symbol is upper-cased. Returns hex-encoded hash (64 characters).
func ComputeDatasetID(
	symbol string,
	sourceFile string,
	firstTickMs int64,
	lastTickMs int64,
	tickCount int,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		strings.ToUpper(symbol),
		sourceFile,
		firstTickMs,
		lastTickMs,
		tickCount,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortID returns the first 12 characters of an ID for display.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
