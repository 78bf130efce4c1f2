// Package subset holds the bounded subset-sum search shared by the capture
// and settlement matchers: given candidate amounts, find a small group that
// sums exactly to a target.
package subset

import "sort"

// MaxGroupDefault caps how many candidates may be combined into one group.
// The cap is the primary latency lever for large pools.
const MaxGroupDefault = 6

// Find returns indices into amounts forming a group of at most maxGroup
// members whose sum is exactly target, or nil when no such group exists.
// Amounts are in integer cents; non-positive candidates are ignored.
//
// The search is deterministic: candidates are tried in amount-descending
// order, insertion order breaking ties, so equal inputs always yield the
// same group. Branches are pruned when the partial sum exceeds the target
// or when even the largest remaining candidates cannot reach it.
func Find(amounts []int64, target int64, maxGroup int) []int {
	if target <= 0 || maxGroup <= 0 {
		return nil
	}

	type cand struct {
		amount int64
		idx    int
	}
	cands := make([]cand, 0, len(amounts))
	for i, a := range amounts {
		if a > 0 && a <= target {
			cands = append(cands, cand{amount: a, idx: i})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].amount > cands[j].amount })

	// prefix[i] = sum of the i largest candidates.
	prefix := make([]int64, len(cands)+1)
	for i, c := range cands {
		prefix[i+1] = prefix[i] + c.amount
	}

	var picked []int
	var found []int

	var search func(pos int, sum int64) bool
	search = func(pos int, sum int64) bool {
		if sum == target {
			found = append([]int(nil), picked...)
			return true
		}
		room := maxGroup - len(picked)
		if room == 0 {
			return false
		}
		for i := pos; i < len(cands); i++ {
			c := cands[i]
			if sum+c.amount > target {
				continue // later candidates are smaller and may still fit
			}
			// Even taking the `room` largest remaining cannot reach target.
			end := i + room
			if end > len(cands) {
				end = len(cands)
			}
			if sum+prefix[end]-prefix[i] < target {
				return false
			}
			picked = append(picked, cands[i].idx)
			if search(i+1, sum+c.amount) {
				return true
			}
			picked = picked[:len(picked)-1]
		}
		return false
	}

	if !search(0, 0) {
		return nil
	}
	sort.Ints(found)
	return found
}
