// SPDX-License-Identifier: MIT

package robot

import "sort"

// CostFunc gives the cost of transitioning from one named node to another.
type CostFunc func(from, to string) float64

// DefaultCost charges nothing when the robot is already at the next
// route's start node and a flat unit otherwise.
func DefaultCost(from, to string) float64 {
	if from == to {
		return 0
	}
	return 1
}

func transitionCost(a, b QueuedRoute, cost CostFunc) float64 {
	return cost(a.Destination, b.Start)
}

// OptimizeQueue reorders routes to reduce the total transition cost of
// executing them back to back: an open-path asymmetric TSP solved with a
// greedy nearest-neighbor construction followed by 2-opt improvement.
// The earliest-added route seeds the path. The input slice is not
// modified.
func OptimizeQueue(routes []QueuedRoute, cost CostFunc) []QueuedRoute {
	if len(routes) <= 1 {
		return append([]QueuedRoute(nil), routes...)
	}

	remaining := append([]QueuedRoute(nil), routes...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].AddedAt.Before(remaining[j].AddedAt)
	})

	path := make([]QueuedRoute, 0, len(remaining))
	path = append(path, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		last := path[len(path)-1]
		bestIdx := 0
		bestCost := transitionCost(last, remaining[0], cost)
		for i := 1; i < len(remaining); i++ {
			if c := transitionCost(last, remaining[i], cost); c < bestCost {
				bestIdx, bestCost = i, c
			}
		}
		path = append(path, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return twoOpt(path, cost)
}

// twoOpt repeatedly reverses path segments while doing so lowers the cost
// of the two transitions it touches, until a full pass finds no
// improvement. Paths shorter than 4 cannot improve.
func twoOpt(path []QueuedRoute, cost CostFunc) []QueuedRoute {
	n := len(path)
	if n < 4 {
		return path
	}

	improved := true
	for improved {
		improved = false
		for i := 0; i < n-2; i++ {
			for j := i + 2; j < n; j++ {
				a, b := path[i], path[i+1]
				cr, d := path[j-1], path[j]

				current := transitionCost(a, b, cost) + transitionCost(cr, d, cost)
				swapped := transitionCost(a, cr, cost) + transitionCost(b, d, cost)
				if swapped < current {
					reverse(path[i+1 : j])
					improved = true
				}
			}
		}
	}
	return path
}

func reverse(s []QueuedRoute) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}
