package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"nc-export/internal/patch"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var patchInfo patch.PatchInfo

var patchCmd = &cobra.Command{
	Use:   "patch [path...]",
	Short: "Package selected workspace files into an NC patch archive",
	Long: `Scans the given files and directories (default: current directory), maps
each file to its location inside the home and writes
patch_<name>_<date>_V<version>.zip with packmetadata.xml, installpatch.xml
and readme.txt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}

		info := patchInfo
		info.Author = viper.GetString("patch.author")
		info.OutputPath = viper.GetString("patch.output")
		if info.OutputPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			info.OutputPath = wd
		}
		if abs, err := filepath.Abs(info.OutputPath); err == nil {
			info.OutputPath = abs
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		bar := newBarReporter("Patch")
		exp := &patch.Exporter{
			HomePath: viper.GetString("home.path"),
			Reporter: bar,
			Logger:   Logger,
		}
		res, err := exp.Export(ctx, args, info)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(renderPatchSummary(res, bar.Warnings()))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(patchCmd)

	f := patchCmd.Flags()
	f.StringVar(&patchInfo.Name, "name", "", "patch name (required)")
	f.StringVar(&patchInfo.Version, "version", "1.0", "patch version")
	f.StringVar(&patchInfo.Description, "description", "", "patch description")
	f.String("author", "", "patch author")
	f.StringP("output", "o", "", "directory the archive is written to (default is the current directory)")
	f.BoolVar(&patchInfo.IncludeSource, "include-source", true, "include compiled classes of Java sources")
	f.BoolVar(&patchInfo.IncludeResources, "include-resources", true, "include resource files")
	f.BoolVar(&patchInfo.IncludeConfig, "include-config", true, "include yyconfig and META-INF files")
	f.BoolVar(&patchInfo.IncludeJavaSource, "include-java-source", false, "also ship the .java sources")

	viper.BindPFlag("patch.author", f.Lookup("author"))
	viper.BindPFlag("patch.output", f.Lookup("output"))
}
