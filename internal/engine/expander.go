package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nc-export/internal/dialect"
	"nc-export/internal/schema"

	"github.com/rs/zerolog"
)

// QueryFunc runs a SELECT and returns its rows.
type QueryFunc func(ctx context.Context, query string) ([]schema.Row, error)

// RuleSource resolves a table to its rule structure, nil when it has none.
type RuleSource interface {
	ParseTableRule(tableName string) *schema.TableStructure
}

// Warner receives non-fatal problems met during expansion.
type Warner interface {
	Warn(message string)
}

var ErrRuleCycle = errors.New("table rule references one of its ancestors")

// BranchResult is the outcome of one sub-table branch. A failed branch carries
// Err and contributes no SQL.
type BranchResult struct {
	SQL string
	Err error
}

// Expander turns tables and their rule structures into DELETE/INSERT blocks.
// It runs sequentially; one Expander serves one export run.
type Expander struct {
	Family           dialect.Family
	Query            QueryFunc
	Rules            RuleSource
	ExcludeTimestamp map[string]bool // lower-cased table names
	Warner           Warner
	Logger           zerolog.Logger
	OnTable          func(schema.TableResult) // called once per finished table, skipped or failed included

	Results []schema.TableResult
}

func (e *Expander) structure(table string) *schema.TableStructure {
	if e.Rules == nil {
		return nil
	}
	return e.Rules.ParseTableRule(table)
}

// Tables is how many tables Export visits for item at most.
func (e *Expander) Tables(item schema.InitDataCfgItem) int {
	if s := e.structure(item.TableName); s != nil {
		return s.Nodes()
	}
	return 1
}

// Export expands one descriptor item: recursively when the table has a rule
// structure, flat otherwise.
func (e *Expander) Export(ctx context.Context, item schema.InitDataCfgItem) (string, error) {
	structure := e.structure(item.TableName)
	if structure == nil {
		return e.ProcessTable(ctx, item.TableName, item.WhereCondition)
	}
	return e.ProcessTableWithStructure(ctx, item.TableName, item.WhereCondition, structure)
}

// ProcessTable emits the DELETE + INSERT block of a single table. Query errors
// are returned to the caller.
func (e *Expander) ProcessTable(ctx context.Context, table, where string) (string, error) {
	var b strings.Builder
	if _, err := e.emitTable(ctx, &b, table, where, "", 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ProcessTableWithStructure emits the primary table's block followed, depth
// first, by every sub-table of structure. Only the primary table's query error is
// returned; sub-table failures become warnings and empty branches.
func (e *Expander) ProcessTableWithStructure(ctx context.Context, table, where string, structure *schema.TableStructure) (string, error) {
	var b strings.Builder
	rows, err := e.emitTable(ctx, &b, table, where, "", 0)
	if err != nil {
		return "", err
	}

	ancestors := map[string]bool{strings.ToLower(table): true}
	if structure.Table != "" {
		ancestors[strings.ToLower(structure.Table)] = true
	}
	pk := schema.PrimaryKeyColumn(table, structure.PrimaryKey, firstRow(rows))
	e.emitChildren(ctx, &b, table, pk, rows, structure.SubTables, 1, ancestors)
	return b.String(), nil
}

func (e *Expander) emitChildren(ctx context.Context, b *strings.Builder, parent, parentKey string, parentRows []schema.Row, subs []*schema.SubTableStructure, depth int, ancestors map[string]bool) {
	for _, sub := range subs {
		br := e.processSubTable(ctx, sub, parent, parentKey, parentRows, depth, ancestors)
		if br.Err != nil {
			msg := fmt.Sprintf("sub-table %s of %s skipped: %v", sub.Table, parent, br.Err)
			e.Logger.Warn().Err(br.Err).Str("table", sub.Table).Str("parent", parent).Msg("sub-table skipped")
			if e.Warner != nil {
				e.Warner.Warn(msg)
			}
			e.record(schema.TableResult{TableName: sub.Table, Parent: parent, Depth: depth, Status: schema.StatusFailed, ErrorMsg: br.Err.Error()})
			continue
		}
		b.WriteString(br.SQL)
	}
}

func (e *Expander) processSubTable(ctx context.Context, sub *schema.SubTableStructure, parent, parentKey string, parentRows []schema.Row, depth int, ancestors map[string]bool) BranchResult {
	name := strings.ToLower(sub.Table)
	if sub.Table == "" {
		return BranchResult{Err: errors.New("sub-table without a table name")}
	}
	if ancestors[name] {
		return BranchResult{Err: fmt.Errorf("%w: %s", ErrRuleCycle, sub.Table)}
	}
	if sub.ForeignKeyColumn == "" {
		return BranchResult{Err: fmt.Errorf("sub-table %s has no foreign key column", sub.Table)}
	}
	if err := ctx.Err(); err != nil {
		return BranchResult{Err: err}
	}

	keys := schema.CollectKeys(parentRows, parentKey)
	if parentKey == "" || len(keys) == 0 {
		e.Logger.Debug().Str("table", sub.Table).Str("parent", parent).Msg("parent has no key values, nothing to fetch")
		e.record(schema.TableResult{TableName: sub.Table, Parent: parent, Depth: depth, Status: schema.StatusSkipped})
		return BranchResult{}
	}

	var b strings.Builder
	where := InCondition(e.Family, sub.ForeignKeyColumn, keys)
	rows, err := e.emitTable(ctx, &b, sub.Table, where, parent, depth)
	if err != nil {
		return BranchResult{Err: err}
	}

	if len(sub.SubTables) > 0 {
		next := make(map[string]bool, len(ancestors)+1)
		for k := range ancestors {
			next[k] = true
		}
		next[name] = true
		pk := schema.PrimaryKeyColumn(sub.Table, e.declaredKey(sub), firstRow(rows))
		e.emitChildren(ctx, &b, sub.Table, pk, rows, sub.SubTables, depth+1, next)
	}
	return BranchResult{SQL: b.String()}
}

// declaredKey prefers the key written on the node, then the one in the table's
// own rule file.
func (e *Expander) declaredKey(sub *schema.SubTableStructure) string {
	if sub.PrimaryKey != "" {
		return sub.PrimaryKey
	}
	if e.Rules != nil {
		if own := e.Rules.ParseTableRule(sub.Table); own != nil {
			return own.PrimaryKey
		}
	}
	return ""
}

func (e *Expander) emitTable(ctx context.Context, b *strings.Builder, table, where, parent string, depth int) ([]schema.Row, error) {
	query := SelectSQL(table, where)
	e.Logger.Debug().Str("table", table).Int("depth", depth).Str("sql", query).Msg("querying")

	rows, err := e.Query(ctx, query)
	if err != nil {
		if depth == 0 {
			e.record(schema.TableResult{TableName: table, Parent: parent, Depth: depth, Status: schema.StatusFailed, ErrorMsg: err.Error()})
		}
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	if parent == "" {
		fmt.Fprintf(b, "-- Table: %s\n", table)
	} else {
		fmt.Fprintf(b, "-- Sub-table: %s (parent %s)\n", table, parent)
	}
	fmt.Fprintf(b, "-- %s\n", query)
	b.WriteString(GenerateDeleteSQL(table, where))
	b.WriteString("\n")
	fmt.Fprintf(b, "-- INSERT INTO %s: %d row(s)\n", table, len(rows))
	for _, stmt := range GenerateInsertSQL(e.Family, table, rows, e.ExcludeTimestamp[strings.ToLower(table)]) {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	e.record(schema.TableResult{TableName: table, Parent: parent, Depth: depth, Rows: len(rows), Status: schema.StatusOK})
	return rows, nil
}

func (e *Expander) record(r schema.TableResult) {
	e.Results = append(e.Results, r)
	if e.OnTable != nil {
		e.OnTable(r)
	}
}

func firstRow(rows []schema.Row) schema.Row {
	if len(rows) == 0 {
		return schema.Row{}
	}
	return rows[0]
}
