package iocboot

import (
	"math"
	"sort"
)

// Ordered is implemented by post-processors that want to control their
// position within their priority tier. Lower values sort first.
type Ordered interface {
	Order() int
}

// PriorityOrdered marks a post-processor as belonging to the exclusive
// priority tier: all PriorityOrdered instances are realized and invoked
// strictly before any plain Ordered or unordered instance of the same
// capability. Within the tier, Order decides as usual.
type PriorityOrdered interface {
	Ordered
	// PriorityOrdered is a marker method with no behavior.
	PriorityOrdered()
}

const (
	tierPriorityOrdered = iota
	tierOrdered
	tierUnordered
)

func orderTier(v any) int {
	if _, ok := v.(PriorityOrdered); ok {
		return tierPriorityOrdered
	}
	if _, ok := v.(Ordered); ok {
		return tierOrdered
	}
	return tierUnordered
}

func orderOf(v any) int {
	if o, ok := v.(Ordered); ok {
		return o.Order()
	}
	// Unordered instances sort after everything inside a mixed slice.
	return math.MaxInt
}

// comparePostProcessors establishes the total order used for every
// post-processor batch: PriorityOrdered beats Ordered beats unordered,
// then numeric rank ascending. Equal elements keep their relative
// discovery order because all sorting goes through a stable sort.
func comparePostProcessors(a, b any) int {
	if ta, tb := orderTier(a), orderTier(b); ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	oa, ob := orderOf(a), orderOf(b)
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	default:
		return 0
	}
}

// sortPostProcessors sorts a batch in place. Batches of fewer than two
// elements are left untouched.
func sortPostProcessors[T any](postProcessors []T) {
	if len(postProcessors) < 2 {
		return
	}
	sort.SliceStable(postProcessors, func(i, j int) bool {
		return comparePostProcessors(postProcessors[i], postProcessors[j]) < 0
	})
}
