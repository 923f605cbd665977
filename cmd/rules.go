package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the table rules used by precast export",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tables that have a rule file, and the table mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := newRulesResolver()
		names := r.AvailableTableRules()
		fmt.Println(titleStyle.Render(fmt.Sprintf("Table rules (%d)", len(names))))
		for _, n := range names {
			fmt.Println("  " + n)
		}

		if mapping := r.MappingEntries(); len(mapping) > 0 {
			fmt.Println(titleStyle.Render("Mapping"))
			for _, e := range mapping {
				fmt.Printf("  %s %s %s\n", e.Key, dimStyle.Render("→"), e.Value)
			}
		}
		if excluded := r.ExcludeTimestampTables(); len(excluded) > 0 {
			fmt.Println(titleStyle.Render("Timestamp excluded"))
			for _, t := range excluded {
				fmt.Println("  " + t)
			}
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Show the sub-table tree of one table rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newRulesResolver().ParseTableRule(args[0])
		if s == nil {
			return fmt.Errorf("no table rule for %s", args[0])
		}
		fmt.Println(renderRuleTree(s))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}
