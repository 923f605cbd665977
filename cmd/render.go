package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"nc-export/internal/dialect"
	"nc-export/internal/engine"
	"nc-export/internal/home"
	"nc-export/internal/patch"
	"nc-export/internal/schema"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	humanize "github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case schema.StatusOK:
		return okStyle
	case schema.StatusSkipped:
		return warnStyle
	}
	return failStyle
}

// renderPrecastSummary lists every table touched by a precast run, indented by
// depth under its parent.
func renderPrecastSummary(res *engine.PrecastResult, warnings []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📊 Precast Summary"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(res.Tables))
	total := 0
	for _, t := range res.Tables {
		name := strings.Repeat("  ", t.Depth) + t.TableName
		status := t.Status
		if t.ErrorMsg != "" {
			status += ": " + truncate(t.ErrorMsg, 40)
		}
		rows = append(rows, []string{name, humanize.Comma(int64(t.Rows)), status})
		total += t.Rows
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Table", "Rows", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 2 && row >= 0 && row < len(res.Tables) {
				return s.Inherit(statusStyle(res.Tables[row].Status))
			}
			return s
		})
	b.WriteString(tbl.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "Data source: %s\n", res.DataSource)
	fmt.Fprintf(&b, "Items: %d, tables: %d, rows: %s\n", res.Items, len(res.Tables), humanize.Comma(int64(total)))
	fmt.Fprintf(&b, "Written: %s (%s)\n", res.File, humanize.Bytes(uint64(res.Bytes)))
	writeWarnings(&b, warnings)
	return b.String()
}

func renderPatchSummary(res *patch.Result, warnings []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📦 Patch Summary"))
	b.WriteString("\n")

	t := tree.New().Root(filepath.Base(res.File))
	for _, e := range res.Entries {
		label := e.Target
		if e.Compiled {
			label += dimStyle.Render(" (compiled)")
		}
		t.Child(label)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	fmt.Fprintf(&b, "Files: %d (%s)\n", len(res.Entries), humanize.Bytes(uint64(res.Bytes)))
	if len(res.ModifiedClasses) > 0 {
		fmt.Fprintf(&b, "Modified classes: %d\n", len(res.ModifiedClasses))
	}
	fmt.Fprintf(&b, "Patch id: %s\n", res.PatchID)
	fmt.Fprintf(&b, "Written: %s\n", res.File)
	writeWarnings(&b, warnings)
	return b.String()
}

func writeWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning(s):", len(warnings))))
	b.WriteString("\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "  └ %s\n", w)
	}
}

// renderDataSources shows the configured data sources, marking the one an
// export would use.
func renderDataSources(cfg home.Config) string {
	if len(cfg.DataSources) == 0 {
		return dimStyle.Render("No data sources configured.") + "\n" +
			dimStyle.Italic(true).Render("Set home.path to read prop.xml or list home.datasources in nc-export.yaml")
	}
	selected, _ := cfg.SelectDataSource()

	rows := make([][]string, 0, len(cfg.DataSources))
	for _, ds := range cfg.DataSources {
		mark := ""
		if ds.Name == selected.Name {
			mark = "●"
		}
		family := "unsupported"
		if f, err := dialect.ParseFamily(ds.DatabaseType); err == nil {
			family = string(f)
		}
		addr := ds.Host
		if ds.Port != 0 {
			addr = fmt.Sprintf("%s:%d", ds.Host, ds.Port)
		}
		rows = append(rows, []string{mark, ds.Name, ds.DatabaseType, family, addr, ds.DatabaseName, ds.Username})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("", "Name", "Type", "Family", "Address", "Database", "User").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 0 {
				return s.Inherit(okStyle)
			}
			return s
		}).
		Render()
}

// renderRuleTree draws a table rule as a tree of sub-tables with their foreign
// keys.
func renderRuleTree(s *schema.TableStructure) string {
	root := s.Table
	if s.PrimaryKey != "" {
		root += dimStyle.Render(" pk " + s.PrimaryKey)
	}
	t := tree.New().Root(titleStyle.Render(root))
	addSubTables(t, s.SubTables)
	return t.String()
}

func addSubTables(t *tree.Tree, subs []*schema.SubTableStructure) {
	for _, sub := range subs {
		label := sub.Table + dimStyle.Render(" fk "+sub.ForeignKeyColumn)
		if len(sub.SubTables) == 0 {
			t.Child(label)
			continue
		}
		child := tree.Root(label)
		addSubTables(child, sub.SubTables)
		t.Child(child)
	}
}
