// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package manager

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/devblok/korufx/target"
)

// TickContext is what a policy decides on.
type TickContext struct {
	Tick      uint64
	Time      float64
	FrameTime float64

	// Ready lists the effects eligible to draw, in registration order.
	Ready []string
}

// IsReady reports whether name is eligible to draw.
func (tc TickContext) IsReady(name string) bool {
	for _, r := range tc.Ready {
		if r == name {
			return true
		}
	}
	return false
}

// Selection is one effect to draw this tick. A nil Target draws to the
// screen.
type Selection struct {
	Effect string
	Target *target.Target
}

// Policy decides which effects are active on a tick. Selections are drawn
// in the order returned; selections of effects that are not ready are
// skipped.
type Policy interface {
	SelectActive(TickContext) []Selection
}

// Func adapts a function into a Policy.
type Func func(TickContext) []Selection

// SelectActive implements interface
func (f Func) SelectActive(tc TickContext) []Selection {
	return f(tc)
}

// Single draws one effect to the screen on every tick.
func Single(name string) Policy {
	return Func(func(tc TickContext) []Selection {
		return []Selection{{Effect: name}}
	})
}

// All draws every ready effect to the screen in registration order.
func All() Policy {
	return Func(func(tc TickContext) []Selection {
		out := make([]Selection, len(tc.Ready))
		for i, name := range tc.Ready {
			out[i] = Selection{Effect: name}
		}
		return out
	})
}

// TimelineEntry makes Effect active while Start <= time < End.
type TimelineEntry struct {
	Effect string  `json:"effect"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// Timeline selects effects by time alone, so seeking and running time
// backwards select exactly what a forward run would at the same time.
// Overlapping entries are drawn in order of Start.
func Timeline(entries ...TimelineEntry) Policy {
	sorted := append([]TimelineEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return Func(func(tc TickContext) []Selection {
		var out []Selection
		for _, e := range sorted {
			if tc.Time >= e.Start && tc.Time < e.End {
				out = append(out, Selection{Effect: e.Effect})
			}
		}
		return out
	})
}

// ParseTimeline reads timeline entries from a JSON array.
func ParseTimeline(data []byte) ([]TimelineEntry, error) {
	var entries []TimelineEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("manager.ParseTimeline(): %w", err)
	}
	for i, e := range entries {
		if e.Effect == "" {
			return nil, fmt.Errorf("manager.ParseTimeline(): entry %d has no effect", i)
		}
		if e.End <= e.Start {
			return nil, fmt.Errorf("manager.ParseTimeline(): entry %d (%s) ends at %g before it starts at %g", i, e.Effect, e.End, e.Start)
		}
	}
	return entries, nil
}

// Duration returns the end of the last entry.
func Duration(entries []TimelineEntry) float64 {
	var end float64
	for _, e := range entries {
		if e.End > end {
			end = e.End
		}
	}
	return end
}
