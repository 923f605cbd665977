package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	Logger  = zerolog.Nop()
)

var RootCmd = &cobra.Command{
	Use:   "nc-export",
	Short: "Export patches and precast SQL from an NC workspace",
	Long: `
  _   _  ____      _______  ______   ___  ____ _____
 | \ | |/ ___|    | ____\ \/ /  _ \ / _ \|  _ \_   _|
 |  \| | |   _____|  _|  \  /| |_) | | | | |_) || |
 | |\  | |__|_____| |___ /  \|  __/| |_| |  _ < | |
 |_| \_|\____|    |_____/_/\_\_|    \___/|_| \_\|_|

NC EXPORT - patch archives and precast SQL scripts for NC / YonBIP homes
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Logger = newLogger(verbose)
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./nc-export.yaml)")
	RootCmd.PersistentFlags().String("home", "", "NC home (installation root)")
	RootCmd.PersistentFlags().String("datasource", "", "data source to export from (overrides base selection)")
	RootCmd.PersistentFlags().String("rules", "", "directory holding tables/common/tablerule")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	viper.BindPFlag("home.path", RootCmd.PersistentFlags().Lookup("home"))
	viper.BindPFlag("home.selectedDataSource", RootCmd.PersistentFlags().Lookup("datasource"))
	viper.BindPFlag("rules.dir", RootCmd.PersistentFlags().Lookup("rules"))

	viper.SetDefault("rules.dir", ".")
	viper.SetDefault("rules.cache", false)
	viper.SetDefault("credentials.timeout", 10*time.Second)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("nc-export")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NCEXPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
