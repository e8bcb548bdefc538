// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mpm

// ahoCorasick is the larger-pattern-set Matcher variant: a trie of all
// registered patterns with failure links, giving a single O(len(buf))
// pass regardless of pattern count. This is the one stdlib-only piece of
// the detection core's domain logic — no pack library implements a
// byte-oriented Aho-Corasick automaton with per-pattern IDs, and hand
// rolling the trie/fail-link construction is the natural idiom for this
// size of problem.
type ahoCorasick struct {
	nodes   []acNode
	lengths map[uint32]int // pattern ID -> pattern length, for Hit.Index
	built   bool
}

type acNode struct {
	children map[byte]int
	fail     int
	outputs  []uint32 // pattern IDs ending at this node
	depth    int
}

func newAhoCorasick() *ahoCorasick {
	return &ahoCorasick{nodes: []acNode{newACNode(0)}, lengths: make(map[uint32]int)}
}

func newACNode(depth int) acNode {
	return acNode{children: make(map[byte]int), depth: depth}
}

func (a *ahoCorasick) AddPattern(pattern []byte, id uint32) {
	cur := 0
	for _, b := range pattern {
		next, ok := a.nodes[cur].children[b]
		if !ok {
			a.nodes = append(a.nodes, newACNode(a.nodes[cur].depth+1))
			next = len(a.nodes) - 1
			a.nodes[cur].children[b] = next
		}
		cur = next
	}
	a.nodes[cur].outputs = append(a.nodes[cur].outputs, id)
	a.lengths[id] = len(pattern)
	a.built = false
}

// Build computes failure links via BFS over the trie, and folds each
// node's output set with its failure-chain ancestors' outputs so Search
// only ever needs to look at the current node.
func (a *ahoCorasick) Build() {
	var queue []int
	root := &a.nodes[0]
	for _, child := range root.children {
		a.nodes[child].fail = 0
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for b, child := range a.nodes[cur].children {
			queue = append(queue, child)

			f := a.nodes[cur].fail
			for f != 0 {
				if next, ok := a.nodes[f].children[b]; ok {
					a.nodes[child].fail = next
					break
				}
				f = a.nodes[f].fail
			}
			if f == 0 {
				if next, ok := a.nodes[0].children[b]; ok && next != child {
					a.nodes[child].fail = next
				} else {
					a.nodes[child].fail = 0
				}
			}
		}
	}

	// Fold failure-chain outputs downward now that every fail link is set.
	order := bfsOrder(a.nodes)
	for _, idx := range order {
		if idx == 0 {
			continue
		}
		failNode := a.nodes[idx].fail
		a.nodes[idx].outputs = append(append([]uint32{}, a.nodes[idx].outputs...), a.nodes[failNode].outputs...)
	}

	a.built = true
}

func bfsOrder(nodes []acNode) []int {
	var order []int
	var queue []int
	queue = append(queue, 0)
	visited := make([]bool, len(nodes))
	visited[0] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, child := range nodes[cur].children {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}
	return order
}

func (a *ahoCorasick) Search(buf []byte) []Hit {
	if !a.built {
		a.Build()
	}

	var hits []Hit
	cur := 0
	for i, b := range buf {
		for cur != 0 {
			if _, ok := a.nodes[cur].children[b]; ok {
				break
			}
			cur = a.nodes[cur].fail
		}
		if next, ok := a.nodes[cur].children[b]; ok {
			cur = next
		} else {
			cur = 0
		}
		for _, id := range a.nodes[cur].outputs {
			// Outputs folded in from the fail chain are shorter than this
			// node's depth, so the start offset uses the pattern's own length.
			hits = append(hits, Hit{ID: id, Index: i - a.lengths[id] + 1})
		}
	}

	sortHits(hits)
	return hits
}
