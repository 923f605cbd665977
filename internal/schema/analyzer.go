package schema

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------
// 1. Primary Key Resolution
// ---------------------------------------------------------------------

// KeyCandidates lists the column names tried, in order, when a rule file does not
// declare the parent's primary key.
func KeyCandidates(table string) []string {
	t := strings.ToLower(table)
	return []string{"pk_" + t, "id", t + "_id", "pkid"}
}

// PrimaryKeyColumn picks the key column of table as it appears in sample.
// A declared key wins when the row carries it; otherwise the conventional
// candidates are tried, then the first column. Returns "" for an empty row.
func PrimaryKeyColumn(table, declared string, sample Row) string {
	if len(sample.Columns) == 0 {
		return ""
	}
	if declared != "" {
		if c := sample.Column(declared); c != "" {
			return c
		}
	}
	for _, cand := range KeyCandidates(table) {
		if c := sample.Column(cand); c != "" {
			return c
		}
	}
	return sample.Columns[0]
}

// ---------------------------------------------------------------------
// 2. Key Collection
// ---------------------------------------------------------------------

// CollectKeys gathers the distinct non-NULL values of column across rows,
// keeping first-seen order.
func CollectKeys(rows []Row, column string) []any {
	seen := make(map[string]bool)
	var keys []any
	for _, r := range rows {
		v, ok := r.Get(column)
		if !ok || v == nil {
			continue
		}
		id := fmt.Sprintf("%T:%v", v, v)
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, v)
	}
	return keys
}
