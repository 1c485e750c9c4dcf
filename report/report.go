// Package report computes violation summaries and renders them as CSV or
// HTML. Everything here is a pure transform over already-fetched records.
package report

import (
	"sort"

	"github.com/exameye/proctor/models"
)

// unknownType is the bucket for violations whose type was never set.
const unknownType = "unknown"

// StudentCount is one row of the per-student ranking.
type StudentCount struct {
	StudentID   string
	StudentName string
	Count       int
}

// TypeShare is one row of a per-type breakdown. Percent is only
// meaningful when the breakdown was computed over a non-empty set.
type TypeShare struct {
	Type    string
	Count   int
	Percent float64
}

// CountByType groups violations by type, case-preserving. Violations
// without a type land in the "unknown" bucket.
func CountByType(violations []models.Violation) map[string]int {
	counts := make(map[string]int)
	for _, v := range violations {
		t := v.ViolationType
		if t == "" {
			t = unknownType
		}
		counts[t]++
	}
	return counts
}

// RankStudents counts violations per student and ranks descending.
// Students with equal counts keep the order of their first violation.
func RankStudents(violations []models.Violation) []StudentCount {
	index := make(map[string]int)
	var ranked []StudentCount
	for _, v := range violations {
		if i, ok := index[v.StudentID]; ok {
			ranked[i].Count++
			continue
		}
		index[v.StudentID] = len(ranked)
		ranked = append(ranked, StudentCount{
			StudentID:   v.StudentID,
			StudentName: v.StudentName,
			Count:       1,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// TypeBreakdown returns per-type counts sorted by count descending, with
// each type's share of the total. An empty input yields no rows at all,
// so a zero total never produces a division.
func TypeBreakdown(violations []models.Violation) []TypeShare {
	total := len(violations)
	if total == 0 {
		return nil
	}

	counts := CountByType(violations)
	shares := make([]TypeShare, 0, len(counts))
	for t, count := range counts {
		shares = append(shares, TypeShare{
			Type:    t,
			Count:   count,
			Percent: float64(count) / float64(total) * 100,
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Type < shares[j].Type
	})
	return shares
}

// sortedTypes returns type/count pairs ordered alphabetically, for the
// breakdown sections of the CSV exports.
func sortedTypes(counts map[string]int) []TypeShare {
	shares := make([]TypeShare, 0, len(counts))
	for t, count := range counts {
		shares = append(shares, TypeShare{Type: t, Count: count})
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].Type < shares[j].Type
	})
	return shares
}
