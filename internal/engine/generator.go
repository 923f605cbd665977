package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nc-export/internal/dialect"
	"nc-export/internal/schema"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatValue renders v as a SQL literal for the given database family.
func FormatValue(family dialect.Family, v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return "'" + val.Format(timeLayout) + "'"
	case *time.Time:
		if val == nil {
			return "NULL"
		}
		return "'" + val.Format(timeLayout) + "'"
	case []byte:
		return family.BinaryLiteral(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return quote(val)
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GenerateInsertSQL emits one INSERT per row. With excludeTimestamp the
// timestamp columns are dropped from both the column and value lists.
func GenerateInsertSQL(family dialect.Family, table string, rows []schema.Row, excludeTimestamp bool) []string {
	stmts := make([]string, 0, len(rows))
	for _, row := range rows {
		cols := make([]string, 0, len(row.Columns))
		vals := make([]string, 0, len(row.Columns))
		for i, c := range row.Columns {
			if excludeTimestamp && IsTimestampColumn(c) {
				continue
			}
			var v any
			if i < len(row.Values) {
				v = row.Values[i]
			}
			cols = append(cols, c)
			vals = append(vals, FormatValue(family, v))
		}
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
			table, strings.Join(cols, ", "), strings.Join(vals, ", ")))
	}
	return stmts
}

// GenerateDeleteSQL deletes the rows an export is about to re-insert. An empty
// where clears the table.
func GenerateDeleteSQL(table, where string) string {
	if where = strings.TrimSpace(where); where == "" {
		return fmt.Sprintf("DELETE FROM %s;", table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s;", table, where)
}

func SelectSQL(table, where string) string {
	if where = strings.TrimSpace(where); where == "" {
		return "SELECT * FROM " + table
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s", table, where)
}

// InCondition builds "column IN (...)" over keys, splitting into OR-ed groups
// when the list is longer than Oracle allows.
func InCondition(family dialect.Family, column string, keys []any) string {
	if len(keys) == 0 {
		return ""
	}
	var groups []string
	for start := 0; start < len(keys); start += maxInList {
		end := start + maxInList
		if end > len(keys) {
			end = len(keys)
		}
		lits := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			lits = append(lits, FormatValue(family, k))
		}
		groups = append(groups, fmt.Sprintf("%s IN (%s)", column, strings.Join(lits, ", ")))
	}
	if len(groups) == 1 {
		return groups[0]
	}
	return "(" + strings.Join(groups, " OR ") + ")"
}
