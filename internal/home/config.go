package home

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DataSource describes one database connection of the installation. It is
// treated as immutable once loaded; the plaintext password lives in Credentials.
type DataSource struct {
	Name         string `mapstructure:"name"`
	DatabaseType string `mapstructure:"databaseType"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	DatabaseName string `mapstructure:"databaseName"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	URL          string `mapstructure:"url"`
}

// Config is the installation configuration the export pipeline reads.
type Config struct {
	HomePath           string
	DataSources        []DataSource
	BaseDatabase       string
	SelectedDataSource string
}

var ErrNoHome = errors.New("installation home path is not configured")

// PropXMLPath is where an installation keeps its connection properties.
func PropXMLPath(homePath string) string {
	return filepath.Join(homePath, "ierp", "bin", "prop.xml")
}

// Validate checks that the home path is set and is a directory.
func (c Config) Validate() error {
	if c.HomePath == "" {
		return ErrNoHome
	}
	info, err := os.Stat(c.HomePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("installation home is not a directory: " + c.HomePath)
	}
	return nil
}

// SelectDataSource picks the data source an export runs against: an explicit
// selection first, then one literally named "base", then the configured base
// database, then the first one available.
func (c Config) SelectDataSource() (DataSource, bool) {
	if len(c.DataSources) == 0 {
		return DataSource{}, false
	}
	find := func(name string) (DataSource, bool) {
		if name == "" {
			return DataSource{}, false
		}
		for _, ds := range c.DataSources {
			if strings.EqualFold(ds.Name, name) {
				return ds, true
			}
		}
		return DataSource{}, false
	}
	if ds, ok := find(c.SelectedDataSource); ok {
		return ds, true
	}
	if ds, ok := find("base"); ok {
		return ds, true
	}
	if ds, ok := find(c.BaseDatabase); ok {
		return ds, true
	}
	return c.DataSources[0], true
}

// IsCloud reports whether the installation ships the nccloud web layer.
func IsCloud(homePath string) bool {
	if homePath == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(homePath, "hotwebs", "nccloud"))
	return err == nil && info.IsDir()
}
