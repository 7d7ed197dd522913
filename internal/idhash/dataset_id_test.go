package idhash

import (
	"testing"
)

func TestComputeDatasetID(t *testing.T) {
	tests := []struct {
		name       string
		symbol     string
		sourceFile string
		first      int64
		last       int64
		count      int
	}{
		{"last export", "NQ", "NQ 03-25.Last.txt", 1704067200000, 1704153599000, 120000},
		{"minute export", "ES", "ES 03-25.txt", 1704067200000, 1704070800000, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDatasetID(tt.symbol, tt.sourceFile, tt.first, tt.last, tt.count)
			if len(got) != 64 {
				t.Errorf("ComputeDatasetID() length = %d, want 64", len(got))
			}
			again := ComputeDatasetID(tt.symbol, tt.sourceFile, tt.first, tt.last, tt.count)
			if got != again {
				t.Errorf("ComputeDatasetID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeDatasetID_Inputs(t *testing.T) {
	base := ComputeDatasetID("NQ", "a.txt", 1, 2, 3)

	if ComputeDatasetID("nq", "a.txt", 1, 2, 3) != base {
		t.Error("symbol case should not change the ID")
	}
	if ComputeDatasetID("NQ", "b.txt", 1, 2, 3) == base {
		t.Error("different source file should change the ID")
	}
	if ComputeDatasetID("NQ", "a.txt", 1, 2, 4) == base {
		t.Error("different tick count should change the ID")
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("ShortID() = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID() = %q", got)
	}
}
