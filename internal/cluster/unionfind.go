package cluster

// unionFind is a disjoint-set forest over claim indices with path
// compression and union by size. The resulting partition is the
// transitive closure of the union calls and does not depend on the
// order they arrive in.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// find returns the representative of x's set, halving the path on the way
func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union merges the sets containing a and b
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}

// labels assigns each index a group label. Labels are numbered by first
// appearance in index order, so the same partition always yields the
// same labeling regardless of how the unions were interleaved.
func (uf *unionFind) labels() []int {
	rootToLabel := make(map[int]int)
	out := make([]int, len(uf.parent))
	for i := range uf.parent {
		root := uf.find(i)
		label, ok := rootToLabel[root]
		if !ok {
			label = len(rootToLabel)
			rootToLabel[root] = label
		}
		out[i] = label
	}
	return out
}
