package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var datasourcesCmd = &cobra.Command{
	Use:     "datasources",
	Aliases: []string{"ds"},
	Short:   "List the data sources of the configured home",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadHomeConfig()
		if err != nil {
			return err
		}
		fmt.Println(renderDataSources(cfg))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(datasourcesCmd)
}
