package cluster

import (
	"context"
	"sort"

	"github.com/ivlasov/claimfold/internal/model"
)

// Deduplicator partitions claims into groups of semantically equivalent
// statements and flags cross-source disagreement. A group's identity is
// a function of the input alone: pair discovery order never changes the
// partition, and group ids are assigned by smallest member index.
type Deduplicator struct {
	index     *Index
	threshold float64
}

// NewDeduplicator creates a deduplicator using the given similarity
// index and cosine threshold
func NewDeduplicator(index *Index, threshold float64) *Deduplicator {
	return &Deduplicator{index: index, threshold: threshold}
}

// Group encodes the claims, finds threshold-passing pairs, and builds
// the transitive-closure partition. The returned groups are complete or
// absent: nothing is materialized until every union has been applied.
func (d *Deduplicator) Group(ctx context.Context, claims []model.Claim) ([]model.ClaimGroup, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	if len(claims) == 1 {
		return []model.ClaimGroup{singleClaimGroup(claims[0])}, nil
	}

	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}

	vectors, err := d.index.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}

	pairs := FindSimilarPairs(vectors, d.threshold)
	labels := BuildPartition(len(claims), pairs)

	groups := assembleGroups(claims, labels)

	// Largest groups first; stable so equal sizes keep id order
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Claims) > len(groups[j].Claims)
	})
	return groups, nil
}

// BuildPartition produces a group label per claim index from the
// similarity pairs. Labels are the transitive closure of the pair
// relation: a chain a~b~c lands all three in one group even when a and
// c alone fall below threshold.
func BuildPartition(n int, pairs []SimilarityPair) []int {
	uf := newUnionFind(n)
	for _, p := range pairs {
		uf.union(p.A, p.B)
	}
	return uf.labels()
}

// assembleGroups collects claims by label and derives each group's
// source set and conflict flag
func assembleGroups(claims []model.Claim, labels []int) []model.ClaimGroup {
	numGroups := 0
	for _, l := range labels {
		if l+1 > numGroups {
			numGroups = l + 1
		}
	}

	groups := make([]model.ClaimGroup, numGroups)
	for i, claim := range claims {
		g := &groups[labels[i]]
		if len(g.Claims) == 0 {
			g.GroupID = labels[i]
			g.Theme = claim.Text
		}
		g.Claims = append(g.Claims, claim)
	}

	for i := range groups {
		flagConflict(&groups[i])
	}
	return groups
}

// flagConflict fills SourceIDs with the distinct member sources and
// marks the group conflicting iff more than one source contributes.
// Pure function of membership; singleton groups are never conflicting.
func flagConflict(g *model.ClaimGroup) {
	seen := make(map[string]bool)
	for _, c := range g.Claims {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			g.SourceIDs = append(g.SourceIDs, c.SourceID)
		}
	}
	sort.Strings(g.SourceIDs)
	g.Conflicting = len(g.SourceIDs) > 1
}

func singleClaimGroup(claim model.Claim) model.ClaimGroup {
	return model.ClaimGroup{
		GroupID:   0,
		Theme:     claim.Text,
		Claims:    []model.Claim{claim},
		SourceIDs: []string{claim.SourceID},
	}
}
