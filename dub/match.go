package dub

import (
	"fmt"
	"slices"
)

type matcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return (i >= r.start || r.start == -1) && (i <= r.end || r.end == -1)
}

var matchAll = rangeMatch{-1, -1}

type listMatch []int

func (l listMatch) match(i int) bool {
	return slices.Contains(l, i)
}

// Slots returns the 0-based indices of the slots in 1..n matched by expr,
// in ascending order. Slot numbers outside 1..n are an error.
func (expr MatchExpr) Slots(n int) ([]int, error) {
	for _, m := range expr.matchers {
		if err := checkRange(m, n); err != nil {
			return nil, err
		}
	}
	var slots []int
	for i := 1; i <= n; i++ {
		for _, m := range expr.matchers {
			if m.match(i) {
				slots = append(slots, i-1)
				break
			}
		}
	}
	return slots, nil
}

func checkRange(m matcher, n int) error {
	switch m := m.(type) {
	case rangeMatch:
		if m == matchAll {
			return nil
		}
		if m.start < 1 || m.end > n || m.start > m.end {
			return fmt.Errorf("slot range %d:%d not within 1:%d", m.start, m.end, n)
		}
	case listMatch:
		for _, k := range m {
			if k < 1 || k > n {
				return fmt.Errorf("slot %d not within 1:%d", k, n)
			}
		}
	}
	return nil
}
