package schema

import "strings"

// TableStructure is the root of a table rule: a primary table and the child tables
// whose rows hang off it through foreign keys.
type TableStructure struct {
	Table      string
	SQLNo      string
	PrimaryKey string // optional, declared in the rule file
	SubTables  []*SubTableStructure
}

type SubTableStructure struct {
	Table            string
	ForeignKeyColumn string
	SQLNo            string
	PrimaryKey       string
	SubTables        []*SubTableStructure
}

// Nodes counts the primary table plus every nested sub-table.
func (s *TableStructure) Nodes() int {
	if s == nil {
		return 0
	}
	return 1 + countNodes(s.SubTables)
}

func countNodes(subs []*SubTableStructure) int {
	n := 0
	for _, sub := range subs {
		n += 1 + countNodes(sub.SubTables)
	}
	return n
}

// InitDataCfgItem is one entry of an items.xml descriptor.
type InitDataCfgItem struct {
	ItemKey        string
	TableName      string
	WhereCondition string
	CorpField      string
	GrpField       string
	SysField       string
	Source         string // descriptor file the item came from
}

// Row is one result row with its columns in select order.
type Row struct {
	Columns []string
	Values  []any
}

// Get looks a column up case-insensitively. A column without a value is absent.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			if i >= len(r.Values) {
				return nil, false
			}
			return r.Values[i], true
		}
	}
	return nil, false
}

// Column returns the row's own spelling of name, or "" when absent.
func (r Row) Column(name string) string {
	for _, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return ""
}

// TableResult is one line of the precast export report.
type TableResult struct {
	TableName string
	Parent    string
	Depth     int
	Rows      int
	Status    string
	ErrorMsg  string
}

const (
	StatusOK      = "OK"
	StatusSkipped = "SKIPPED"
	StatusFailed  = "FAILED"
)
