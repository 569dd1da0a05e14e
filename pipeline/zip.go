package pipeline

import (
	"fmt"
	"sort"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// MultiElem is one synchronised row produced by FlatZip: a shared time
// plus one payload per input, in input order.
type MultiElem struct {
	Time     timeframe.Index
	Payloads []any
}

// FlatZip implements spec.md §4.4's multi-input execution: it
// iterates the N inputs in non-decreasing time order, and at each
// time present in every input either emits one row per index (when
// every input has the same count there) or broadcasts the lone input
// whose count is 1 against the rest. Times missing from any input are
// skipped silently; a count mismatch with no broadcaster fails with
// ErrShapeMismatch.
func FlatZip(inputs [][]Elem) ([]MultiElem, error) {
	n := len(inputs)
	if n == 0 {
		return nil, nil
	}

	grouped := make([]map[timeframe.Index][]Elem, n)
	timeSeen := make(map[timeframe.Index]struct{})
	for i, els := range inputs {
		m := make(map[timeframe.Index][]Elem)
		for _, e := range els {
			m[e.Time] = append(m[e.Time], e)
			timeSeen[e.Time] = struct{}{}
		}
		grouped[i] = m
	}

	times := make([]timeframe.Index, 0, len(timeSeen))
	for t := range timeSeen {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	var out []MultiElem
	for _, t := range times {
		groups := make([][]Elem, n)
		complete := true
		for i := 0; i < n; i++ {
			g := grouped[i][t]
			if len(g) == 0 {
				complete = false
				break
			}
			groups[i] = g
		}
		if !complete {
			continue
		}

		allEqual := true
		for i := 1; i < n; i++ {
			if len(groups[i]) != len(groups[0]) {
				allEqual = false
				break
			}
		}

		if allEqual {
			count := len(groups[0])
			for idx := 0; idx < count; idx++ {
				payloads := make([]any, n)
				for i := 0; i < n; i++ {
					payloads[i] = groups[i][idx].Payload
				}
				out = append(out, MultiElem{Time: t, Payloads: payloads})
			}
			continue
		}

		broadcastIdx := -1
		ones := 0
		for i, g := range groups {
			if len(g) == 1 {
				ones++
				broadcastIdx = i
			}
		}
		if ones != 1 {
			return nil, fmt.Errorf("zipping inputs at time %d: %w", t, apperrors.ErrShapeMismatch)
		}

		commonCount := -1
		for i, g := range groups {
			if i == broadcastIdx {
				continue
			}
			if commonCount == -1 {
				commonCount = len(g)
			} else if len(g) != commonCount {
				return nil, fmt.Errorf("zipping inputs at time %d: %w", t, apperrors.ErrShapeMismatch)
			}
		}

		for idx := 0; idx < commonCount; idx++ {
			payloads := make([]any, n)
			for i := 0; i < n; i++ {
				if i == broadcastIdx {
					payloads[i] = groups[i][0].Payload
				} else {
					payloads[i] = groups[i][idx].Payload
				}
			}
			out = append(out, MultiElem{Time: t, Payloads: payloads})
		}
	}

	return out, nil
}
