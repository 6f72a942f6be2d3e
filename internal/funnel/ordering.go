package funnel

import (
	"slices"
	"sort"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// Direction of a manual move within a sibling pool.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// Pool identifies which sibling pool a step is ordered in. Traffic
// steps and funnel steps are numbered independently.
type Pool string

const (
	PoolTraffic Pool = "traffic"
	PoolFunnel  Pool = "funnel"
)

// PoolOf returns the sibling pool a step belongs to.
func PoolOf(s models.Step) Pool {
	if s.Type == models.StepTraffic {
		return PoolTraffic
	}
	return PoolFunnel
}

// poolIndices returns the indices of steps in the given pool, sorted by
// their order value (stable for equal orders).
func poolIndices(steps []models.Step, pool Pool) []int {
	var idx []int
	for i, s := range steps {
		if PoolOf(s) == pool {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return steps[idx[a]].Order < steps[idx[b]].Order
	})
	return idx
}

// Normalize renumbers both pools densely from 0, preserving the current
// relative order. Returns a fresh slice; the input is not mutated.
func Normalize(steps []models.Step) []models.Step {
	out := slices.Clone(steps)
	for _, pool := range []Pool{PoolTraffic, PoolFunnel} {
		for rank, i := range poolIndices(out, pool) {
			out[i].Order = rank
		}
	}
	return out
}

// MoveStep swaps the step with its immediate neighbour inside its own
// pool. The second return is false when the step is unknown or already
// at the boundary, in which case the input is returned unchanged.
func MoveStep(steps []models.Step, stepID string, dir Direction) ([]models.Step, bool) {
	target := -1
	for i, s := range steps {
		if s.ID == stepID {
			target = i
			break
		}
	}
	if target == -1 {
		return steps, false
	}

	idx := poolIndices(steps, PoolOf(steps[target]))
	pos := slices.Index(idx, target)

	next := pos - 1
	if dir == MoveDown {
		next = pos + 1
	}
	if next < 0 || next >= len(idx) {
		return steps, false
	}

	out := slices.Clone(steps)
	out[idx[pos]].Order, out[idx[next]].Order = out[idx[next]].Order, out[idx[pos]].Order
	return Normalize(out), true
}

// ReindexAfterDrag applies array-move semantics inside one pool: the
// step at sourceIndex (pool position, not slice index) is removed and
// reinserted at destIndex, then the pool is renumbered densely.
func ReindexAfterDrag(steps []models.Step, pool Pool, sourceIndex, destIndex int) ([]models.Step, bool) {
	idx := poolIndices(steps, pool)
	if sourceIndex < 0 || sourceIndex >= len(idx) || destIndex < 0 || destIndex >= len(idx) {
		return steps, false
	}
	if sourceIndex == destIndex {
		return steps, false
	}

	moved := idx[sourceIndex]
	rest := slices.Delete(slices.Clone(idx), sourceIndex, sourceIndex+1)
	rest = slices.Insert(rest, destIndex, moved)

	out := slices.Clone(steps)
	for rank, i := range rest {
		out[i].Order = rank
	}
	return out, true
}

// InsertStep places a new step in its pool: capture pages always take
// order 0 and push the rest of the funnel pool down by one (the board's
// first-slide rule); everything else appends at the end of its pool.
func InsertStep(steps []models.Step, step models.Step) []models.Step {
	out := slices.Clone(steps)
	pool := PoolOf(step)

	if step.Type == models.StepCapture {
		for i := range out {
			if PoolOf(out[i]) == PoolFunnel {
				out[i].Order++
			}
		}
		step.Order = 0
		return append(out, step)
	}

	step.Order = len(poolIndices(out, pool))
	return append(out, step)
}

// RemoveSteps drops the given step ids and renumbers both pools.
func RemoveSteps(steps []models.Step, ids ...string) []models.Step {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make([]models.Step, 0, len(steps))
	for _, s := range steps {
		if !drop[s.ID] {
			out = append(out, s)
		}
	}
	return Normalize(out)
}

// NormalizeProducts renumbers a funnel's products densely from 0.
func NormalizeProducts(products []models.Product) []models.Product {
	out := slices.Clone(products)
	idx := make([]int, len(out))
	for i := range out {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return out[idx[a]].Order < out[idx[b]].Order
	})
	for rank, i := range idx {
		out[i].Order = rank
	}
	return out
}

// MoveProduct swaps a product with its neighbour in funnel order.
// Boundary moves are no-ops.
func MoveProduct(products []models.Product, productID string, dir Direction) ([]models.Product, bool) {
	ordered := NormalizeProducts(products)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Order < ordered[b].Order })

	pos := -1
	for i, p := range ordered {
		if p.ID == productID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return products, false
	}
	next := pos - 1
	if dir == MoveDown {
		next = pos + 1
	}
	if next < 0 || next >= len(ordered) {
		return products, false
	}
	ordered[pos].Order, ordered[next].Order = ordered[next].Order, ordered[pos].Order
	return NormalizeProducts(ordered), true
}

// MoveItem applies splice-move semantics to a product's item list
// (items carry no order field; array position is the order).
func MoveItem(items []models.ProductItem, sourceIndex, destIndex int) ([]models.ProductItem, bool) {
	if sourceIndex < 0 || sourceIndex >= len(items) || destIndex < 0 || destIndex >= len(items) {
		return items, false
	}
	if sourceIndex == destIndex {
		return items, false
	}
	out := slices.Clone(items)
	item := out[sourceIndex]
	out = slices.Delete(out, sourceIndex, sourceIndex+1)
	out = slices.Insert(out, destIndex, item)
	return out, true
}
