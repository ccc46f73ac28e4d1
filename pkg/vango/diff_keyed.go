package vango

import (
	"sort"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// noIndex marks a new item with no old counterpart.
const noIndex = -1

// diffKeyed reconciles two keyed lists. Common prefixes and suffixes are
// diffed in place; the remaining middle is matched by key and reordered with
// the fewest moves, keeping the longest increasing run of old positions
// still.
func (rt *Runtime) diffKeyed(old, next []*vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	left, right, done := rt.diffKeyedEnds(old, next, parent, sink)
	if done {
		return
	}

	oldMid := old[left : len(old)-right]
	nextMid := next[left : len(next)-right]
	switch {
	case len(nextMid) == 0:
		rt.removeList(oldMid, -1, true, sink)
	case len(oldMid) == 0:
		if left == 0 {
			rt.createAndInsertBefore(nextMid, next[len(next)-right], parent, sink)
		} else {
			rt.createAndInsertAfter(nextMid, next[left-1], parent, sink)
		}
	default:
		rt.diffKeyedMiddle(oldMid, nextMid, parent, sink)
	}
}

// diffKeyedEnds diffs the shared prefix and suffix. It reports done when one
// list was consumed entirely and the rest has been created or removed.
func (rt *Runtime) diffKeyedEnds(old, next []*vdom.VNode, parent elementRef, sink vdom.MutationSink) (left, right int, done bool) {
	for left < len(old) && left < len(next) && old[left].Key == next[left].Key {
		rt.diffNode(old[left], next[left], sink)
		left++
	}
	if left == len(old) {
		if left < len(next) {
			rt.createAndInsertAfter(next[left:], next[left-1], parent, sink)
		}
		return left, 0, true
	}
	if left == len(next) {
		rt.removeList(old[left:], -1, true, sink)
		return left, 0, true
	}

	for right < len(old)-left && right < len(next)-left &&
		old[len(old)-1-right].Key == next[len(next)-1-right].Key {
		rt.diffNode(old[len(old)-1-right], next[len(next)-1-right], sink)
		right++
	}
	return left, right, false
}

// diffKeyedMiddle handles a middle section where both sides are non-empty and
// the ends differ.
//
// Old items without a counterpart are removed first. Items on the longest
// increasing run of old positions are diffed in place. Every other item is
// created or diffed and pushed, and the pushed items are inserted in batches:
// those after the run's last item, those in each gap of the run (right to
// left), and those before its first item.
func (rt *Runtime) diffKeyedMiddle(old, next []*vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	oldIndex := make(map[string]int, len(old))
	for i, n := range old {
		oldIndex[n.Key] = i
	}
	nextToOld := make([]int, len(next))
	nextKeys := make(map[string]struct{}, len(next))
	shared := 0
	for i, n := range next {
		nextKeys[n.Key] = struct{}{}
		if j, ok := oldIndex[n.Key]; ok {
			nextToOld[i] = j
			shared++
		} else {
			nextToOld[i] = noIndex
		}
	}

	if shared == 0 {
		rt.removeList(old[1:], -1, true, sink)
		n := rt.createChildren(next, parent, sink)
		rt.removeNode(old[0], n, true, sink)
		return
	}

	for _, n := range old {
		if _, ok := nextKeys[n.Key]; !ok {
			rt.removeNode(n, -1, true, sink)
		}
	}

	lis := longestIncreasing(nextToOld)
	for _, i := range lis {
		rt.diffNode(old[nextToOld[i]], next[i], sink)
	}

	last := lis[len(lis)-1]
	if last < len(next)-1 {
		n := rt.createOrMove(old, next, nextToOld, last+1, len(next), parent, sink)
		sink.InsertNodesAfter(rt.lastElement(next[last]), n)
	}
	for k := len(lis) - 1; k > 0; k-- {
		hi, lo := lis[k], lis[k-1]
		if hi-lo > 1 {
			n := rt.createOrMove(old, next, nextToOld, lo+1, hi, parent, sink)
			sink.InsertNodesBefore(rt.firstElement(next[hi]), n)
		}
	}
	if first := lis[0]; first > 0 {
		n := rt.createOrMove(old, next, nextToOld, 0, first, parent, sink)
		sink.InsertNodesBefore(rt.firstElement(next[first]), n)
	}
}

// createOrMove puts next[from:to] on the stack in order: new items are
// created, kept items are diffed against their old node and pushed.
func (rt *Runtime) createOrMove(old, next []*vdom.VNode, nextToOld []int, from, to int, parent elementRef, sink vdom.MutationSink) int {
	n := 0
	for i := from; i < to; i++ {
		if j := nextToOld[i]; j == noIndex {
			n += rt.createNode(next[i], parent, sink)
		} else {
			rt.diffNode(old[j], next[i], sink)
			n += rt.pushAllRoots(next[i], sink)
		}
	}
	return n
}

// longestIncreasing returns the indices of a longest strictly increasing
// subsequence of a, ignoring noIndex entries.
func longestIncreasing(a []int) []int {
	var tails []int
	prev := make([]int, len(a))
	for i, v := range a {
		prev[i] = -1
		if v == noIndex {
			continue
		}
		k := sort.Search(len(tails), func(k int) bool { return a[tails[k]] >= v })
		if k > 0 {
			prev[i] = tails[k-1]
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	out := make([]int, len(tails))
	for k, i := len(out)-1, tails[len(tails)-1]; k >= 0; k-- {
		out[k] = i
		i = prev[i]
	}
	return out
}
