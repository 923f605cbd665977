package schema_test

import (
	"nc-export/internal/schema"
	"testing"
)

func TestPrimaryKeyColumn_DeclaredWins(t *testing.T) {
	row := schema.Row{Columns: []string{"ID", "PK_ORDER", "NAME"}}

	if got := schema.PrimaryKeyColumn("bd_order", "pk_order", row); got != "PK_ORDER" {
		t.Errorf("Expected PK_ORDER, got %s", got)
	}
}

func TestPrimaryKeyColumn_Candidates(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		want    string
	}{
		{"pk prefix", "bd_customer", []string{"code", "pk_bd_customer", "id"}, "pk_bd_customer"},
		{"id", "bd_customer", []string{"code", "ID"}, "ID"},
		{"table id", "orders", []string{"code", "orders_id"}, "orders_id"},
		{"pkid", "orders", []string{"code", "PKID"}, "PKID"},
		{"first column", "orders", []string{"code", "name"}, "code"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := schema.PrimaryKeyColumn(tc.table, "", schema.Row{Columns: tc.columns})
			if got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPrimaryKeyColumn_DeclaredMissingFallsBack(t *testing.T) {
	row := schema.Row{Columns: []string{"name", "id"}}
	if got := schema.PrimaryKeyColumn("t", "pk_t", row); got != "id" {
		t.Errorf("Expected id, got %s", got)
	}
	if got := schema.PrimaryKeyColumn("t", "pk_t", schema.Row{}); got != "" {
		t.Errorf("Expected empty key for empty row, got %s", got)
	}
}

func TestCollectKeys_DistinctNonNull(t *testing.T) {
	cols := []string{"id", "name"}
	rows := []schema.Row{
		{Columns: cols, Values: []any{"a", "x"}},
		{Columns: cols, Values: []any{nil, "y"}},
		{Columns: cols, Values: []any{"b", "z"}},
		{Columns: cols, Values: []any{"a", "w"}},
	}

	keys := schema.CollectKeys(rows, "ID")
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected [a b], got %v", keys)
	}
}

func TestTableStructureNodes(t *testing.T) {
	s := &schema.TableStructure{
		Table: "A",
		SubTables: []*schema.SubTableStructure{
			{Table: "B", SubTables: []*schema.SubTableStructure{{Table: "C"}}},
			{Table: "D"},
		},
	}
	if n := s.Nodes(); n != 4 {
		t.Errorf("Expected 4 nodes, got %d", n)
	}
}

func TestCollectKeys_ShortRow(t *testing.T) {
	cols := []string{"PK_ORDER", "CODE"}
	rows := []schema.Row{
		{Columns: cols, Values: []any{"1001", "SO-1"}},
		{Columns: cols, Values: []any{}},
		{Columns: []string{"CODE", "PK_ORDER"}, Values: []any{"SO-3"}},
		{Columns: cols, Values: []any{"1002"}},
	}

	keys := schema.CollectKeys(rows, "pk_order")
	if len(keys) != 2 || keys[0] != "1001" || keys[1] != "1002" {
		t.Errorf("Expected [1001 1002], got %v", keys)
	}
	if _, ok := rows[2].Get("PK_ORDER"); ok {
		t.Error("Expected a column without a value to be absent")
	}
}
