package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// planChunk bounds how many ticks RunPlan processes between cancellation checks.
const planChunk = 10000

// PlannedOrder is one scripted order. It fills at the price of tick Index (0-based).
type PlannedOrder struct {
	Index  int
	Action string // CmdBuy, CmdSell or CmdFlatten
	Size   int
}

// ParsePlan reads a comma-separated plan such as "buy:100,sell:250:2,flatten:400".
// Entries are action:tick[:size]; size defaults to 1. The result is ordered by
// tick index, keeping the written order for orders on the same tick.
func ParsePlan(s string) ([]PlannedOrder, error) {
	plan := []PlannedOrder{}
	for _, raw := range strings.Split(s, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("%w: %q: want action:tick[:size]", ErrInvalidPlan, entry)
		}

		action := strings.ToLower(strings.TrimSpace(parts[0]))
		switch action {
		case CmdBuy, CmdSell, CmdFlatten:
		default:
			return nil, fmt.Errorf("%w: %q: unknown action %q", ErrInvalidPlan, entry, action)
		}

		index, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("%w: %q: bad tick index", ErrInvalidPlan, entry)
		}

		size := 1
		if len(parts) == 3 {
			size, err = strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil || size < 1 {
				return nil, fmt.Errorf("%w: %q: bad size", ErrInvalidPlan, entry)
			}
		}
		plan = append(plan, PlannedOrder{Index: index, Action: action, Size: size})
	}

	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].Index < plan[j].Index
	})
	return plan, nil
}

// RunPlan steps through the whole tick stream, placing each planned order once
// its tick has been processed. Stops and auto exits run as in live playback.
// Orders whose tick has already passed fill at the current tick.
func (s *Session) RunPlan(ctx context.Context, plan []PlannedOrder) error {
	total := s.State().TotalTicks
	for _, o := range plan {
		if o.Index >= total {
			return fmt.Errorf("%w: tick %d beyond %d ticks", ErrInvalidPlan, o.Index, total)
		}
	}

	for _, o := range plan {
		if err := s.advanceTo(ctx, o.Index+1); err != nil {
			return err
		}
		if err := s.Execute(Command{Name: o.Action, Size: o.Size}); err != nil {
			return fmt.Errorf("order at tick %d: %w", o.Index, err)
		}
	}
	return s.advanceTo(ctx, total)
}

func (s *Session) advanceTo(ctx context.Context, target int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur := s.State().CurrentTickIndex
		if cur >= target {
			return nil
		}
		s.StepForward(min(target-cur, planChunk))
	}
}
