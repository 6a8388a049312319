// Package ranking orders scan records by size.
package ranking

import (
	"cmp"
	"slices"
)

// Ranked is a record that can be placed in a size ranking
type Ranked interface {
	RankSize() uint64
	RankPath() string
}

// Rank sorts records by size, largest first, breaking ties by path, and then
// keeps at most limit of them. A limit of 0 keeps everything. The input slice is
// reordered in place.
func Rank[R Ranked](records []R, limit int) []R {
	slices.SortFunc(records, Compare[R])
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Compare is the total order used by Rank
func Compare[R Ranked](a, b R) int {
	if c := cmp.Compare(b.RankSize(), a.RankSize()); c != 0 {
		return c
	}
	return cmp.Compare(a.RankPath(), b.RankPath())
}
