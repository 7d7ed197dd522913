package replay

import (
	"fmt"
	"sort"

	"tick-replay-lab/internal/domain"
)

// SortTicks orders ticks by timestamp ASC.
// The sort is stable so ticks sharing a millisecond keep their feed order.
func SortTicks(ticks []domain.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp < ticks[j].Timestamp
	})
}

// ValidateOrder returns ErrInvalidOrdering at the first tick older than its predecessor.
func ValidateOrder(ticks []domain.Tick) error {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp < ticks[i-1].Timestamp {
			return fmt.Errorf("%w: index %d (%d < %d)", ErrInvalidOrdering, i, ticks[i].Timestamp, ticks[i-1].Timestamp)
		}
	}
	return nil
}
