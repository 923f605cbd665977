package cmd

import (
	"fmt"

	"nc-export/internal/home"
	"nc-export/internal/rules"

	"github.com/spf13/viper"
)

// LoadHomeConfig builds the installation configuration. Data sources listed in
// the config file win; otherwise they are read from the home's prop.xml.
func LoadHomeConfig() (home.Config, error) {
	cfg := home.Config{
		HomePath:           viper.GetString("home.path"),
		BaseDatabase:       viper.GetString("home.baseDatabase"),
		SelectedDataSource: viper.GetString("home.selectedDataSource"),
	}

	var sources []home.DataSource
	if err := viper.UnmarshalKey("home.datasources", &sources); err != nil {
		return cfg, fmt.Errorf("failed to parse home.datasources config: %w", err)
	}

	if len(sources) == 0 && cfg.HomePath != "" {
		path := home.PropXMLPath(cfg.HomePath)
		info, err := home.ParsePropXML(path)
		if err != nil {
			Logger.Warn().Err(err).Str("file", path).Msg("no data sources from prop.xml")
		} else {
			sources = info.DataSources
			Logger.Debug().Int("port", info.Port).Int("datasources", len(sources)).Msg("read prop.xml")
		}
	}
	cfg.DataSources = sources
	return cfg, nil
}

func newRulesResolver() *rules.Resolver {
	var opts []rules.Option
	if viper.GetBool("rules.cache") {
		opts = append(opts, rules.WithCache())
	}
	return rules.NewResolver(viper.GetString("rules.dir"), Logger, opts...)
}

func newCredentialResolver() home.CredentialResolver {
	return home.CommandDecrypter{
		Command: viper.GetStringSlice("credentials.decryptCommand"),
		Timeout: viper.GetDuration("credentials.timeout"),
		Logger:  Logger,
	}
}
