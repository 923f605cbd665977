package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"nc-export/internal/engine"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var precastOutput string

var precastCmd = &cobra.Command{
	Use:   "precast [items.xml or directory...]",
	Short: "Export precast DELETE/INSERT SQL for the tables listed in items.xml",
	Long: `Reads every items.xml / item.xml under the given paths, expands each table
through its table rule (child tables by foreign key) and writes one
allsql_<timestamp>.sql script into the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		cfg, err := LoadHomeConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		bar := newBarReporter("Precast")
		exp := &engine.PrecastExporter{
			Home:        cfg,
			Rules:       newRulesResolver(),
			Credentials: newCredentialResolver(),
			Reporter:    bar,
			Logger:      Logger,
		}
		res, err := exp.Export(ctx, engine.PrecastOptions{
			Descriptors: args,
			OutputDir:   viper.GetString("precast.output"),
		})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(renderPrecastSummary(res, bar.Warnings()))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(precastCmd)

	precastCmd.Flags().StringVarP(&precastOutput, "output", "o", ".", "directory the SQL script is written to")
	viper.BindPFlag("precast.output", precastCmd.Flags().Lookup("output"))
}
