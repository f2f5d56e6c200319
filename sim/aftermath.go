package sim

import (
	"fmt"
	"sort"
)

// maxMinFair computes max-min fair bandwidth shares for every flow on the
// given links by water-filling: repeatedly find the most-constrained link
// (smallest remaining-capacity / unfixed-flow-count), fix its unfixed flows
// at that fair share, deduct their share from every link they traverse, and
// repeat until all flows are fixed. Ties among most-constrained links break
// by ascending link ID so runs are deterministic.
//
// The links slice must already be sorted by ID (Network.linksWithFlows).
// The result maps flow ID to allocated bandwidth.
func maxMinFair(links []*Link) map[int]float64 {
	alloc := make(map[int]float64)

	remaining := make(map[int]float64, len(links))
	unfixed := make(map[int]map[int]*Flow, len(links))
	flowLinks := make(map[int][]*Link)
	total := 0
	for _, l := range links {
		remaining[l.ID] = l.Capacity
		pending := make(map[int]*Flow, len(l.flows))
		for _, f := range l.Flows() {
			pending[f.ID] = f
			if _, seen := alloc[f.ID]; !seen {
				alloc[f.ID] = 0
				total++
			}
			flowLinks[f.ID] = append(flowLinks[f.ID], l)
		}
		unfixed[l.ID] = pending
	}

	fixed := make(map[int]bool, total)
	for len(fixed) < total {
		// Most-constrained link among those with unfixed flows.
		var bottleneck *Link
		bestShare := 0.0
		for _, l := range links {
			n := len(unfixed[l.ID])
			if n == 0 {
				continue
			}
			share := remaining[l.ID] / float64(n)
			if bottleneck == nil || share < bestShare {
				bottleneck = l
				bestShare = share
			}
		}
		if bottleneck == nil {
			// Unfixed flows remain but no link constrains them; cannot
			// happen while every flow traverses at least one link.
			panic("aftermath: unconstrained flows remain")
		}
		if bestShare < 0 {
			bestShare = 0
		}

		for _, f := range sortedFlows(unfixed[bottleneck.ID]) {
			alloc[f.ID] = bestShare
			fixed[f.ID] = true
			for _, l := range flowLinks[f.ID] {
				remaining[l.ID] -= bestShare
				delete(unfixed[l.ID], f.ID)
			}
		}
	}

	// Internal-consistency check: a violation here is an allocator defect
	// and must never be clamped silently.
	for _, l := range links {
		sum := 0.0
		for _, f := range l.flows {
			sum += alloc[f.ID]
		}
		if sum > l.Capacity+Epsilon {
			panic(fmt.Sprintf("aftermath: link %d allocation %.9f exceeds capacity %.9f",
				l.ID, sum, l.Capacity))
		}
	}

	return alloc
}

func sortedFlows(m map[int]*Flow) []*Flow {
	out := make([]*Flow, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
