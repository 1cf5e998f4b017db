package drain

import "strconv"

// The parse tree is stored as an arena of nodes addressed by index.
// Child maps hold arena indices, never pointers, which keeps traversal
// and snapshotting trivial and the whole structure relocatable.
//
// Level 0 is the root, level 1 branches on token count, and levels 2
// through depth-1 branch on the literal token at positions 0, 1, ….
// Leaves hold cluster IDs. Nodes are created lazily and never removed.

type nodeKind uint8

const (
	rootNode nodeKind = iota
	lengthNode
	tokenNode
	overflowNode
)

// lengthOverflowKey routes token counts arriving after the root's
// distinct-child cap is hit into one shared bucket.
const lengthOverflowKey = "len_*"

type treeNode struct {
	kind     nodeKind
	children map[string]int32
	clusters []int
}

type parseTree struct {
	nodes       []treeNode
	depth       int
	maxChildren int
}

func newParseTree(depth, maxChildren int) *parseTree {
	t := &parseTree{
		nodes:       make([]treeNode, 0, 64),
		depth:       depth,
		maxChildren: maxChildren,
	}
	t.nodes = append(t.nodes, treeNode{
		kind:     rootNode,
		children: make(map[string]int32),
	})
	return t
}

// child returns the arena index of cur's child for key, creating it
// lazily. The overflow child shares the maxChildren budget: the last free
// slot is reserved for it, and once the node is saturated every unseen key
// routes there instead of widening the node.
func (t *parseTree) child(cur int32, key string, kind nodeKind, overflowKey string) int32 {
	children := t.nodes[cur].children
	if idx, ok := children[key]; ok {
		return idx
	}

	if key != overflowKey {
		_, hasOverflow := children[overflowKey]
		switch {
		case hasOverflow && len(children) >= t.maxChildren:
			return children[overflowKey]
		case !hasOverflow && len(children)+1 >= t.maxChildren:
			key = overflowKey
			kind = overflowNode
		}
	}

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, treeNode{
		kind:     kind,
		children: make(map[string]int32),
	})
	// children still aliases the node's map even if the append above
	// moved the arena's backing array.
	children[key] = idx
	return idx
}

// descend walks from the root to the leaf for the given token sequence,
// creating missing nodes on the way. It returns the leaf's arena index and
// the number of levels descended (1 for the length bucket plus one per
// token level), which is the depth handed to the strategy's threshold.
func (t *parseTree) descend(tokens []string) (leaf int32, leafDepth int) {
	cur := t.child(0, lengthKey(len(tokens)), lengthNode, lengthOverflowKey)
	leafDepth = 1

	for i := 0; i < len(tokens) && i < t.depth-2; i++ {
		key := tokens[i]
		kind := tokenNode
		if key == Wildcard {
			kind = overflowNode
		}
		cur = t.child(cur, key, kind, Wildcard)
		leafDepth++
	}

	return cur, leafDepth
}

// clustersAt returns the cluster IDs attached to a leaf, in insertion
// order.
func (t *parseTree) clustersAt(leaf int32) []int {
	return t.nodes[leaf].clusters
}

// attach appends a cluster ID to a leaf.
func (t *parseTree) attach(leaf int32, clusterID int) {
	t.nodes[leaf].clusters = append(t.nodes[leaf].clusters, clusterID)
}

// size returns the number of allocated nodes, root included.
func (t *parseTree) size() int {
	return len(t.nodes)
}

func lengthKey(n int) string {
	return "len_" + strconv.Itoa(n)
}
