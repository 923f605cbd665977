package home

import (
	"regexp"
	"strconv"
	"strings"

	"nc-export/internal/xmlfile"
)

// PropInfo is what the export tooling needs from prop.xml.
type PropInfo struct {
	Port        int
	WSPort      int
	DataSources []DataSource
}

type propXML struct {
	Domain struct {
		Server struct {
			HTTP struct {
				Port string `xml:"port"`
			} `xml:"http"`
			ServicePort string `xml:"servicePort"`
		} `xml:"server"`
	} `xml:"domain"`
	DataSources []struct {
		Name         string `xml:"dataSourceName"`
		DatabaseType string `xml:"databaseType"`
		URL          string `xml:"databaseUrl"`
		User         string `xml:"user"`
		Password     string `xml:"password"`
	} `xml:"dataSource"`
}

// ParsePropXML reads the installation's connection properties file.
func ParsePropXML(path string) (*PropInfo, error) {
	var raw propXML
	if err := xmlfile.Decode(path, &raw); err != nil {
		return nil, err
	}

	info := &PropInfo{
		Port:   atoi(raw.Domain.Server.HTTP.Port),
		WSPort: atoi(raw.Domain.Server.ServicePort),
	}
	for _, d := range raw.DataSources {
		ds := DataSource{
			Name:         strings.TrimSpace(d.Name),
			DatabaseType: strings.TrimSpace(d.DatabaseType),
			Username:     strings.TrimSpace(d.User),
			Password:     strings.TrimSpace(d.Password),
			URL:          strings.TrimSpace(d.URL),
		}
		ds.Host, ds.Port, ds.DatabaseName = ParseJDBCURL(ds.URL)
		info.DataSources = append(info.DataSources, ds)
	}
	return info, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

var (
	oracleService = regexp.MustCompile(`(?i)^jdbc:oracle:thin:@(?://)?([^:/]+):(\d+)/([^?;]+)`)
	oracleSID     = regexp.MustCompile(`(?i)^jdbc:oracle:thin:@([^:/]+):(\d+):([^?;]+)`)
	sqlServerURL  = regexp.MustCompile(`(?i)^jdbc:sqlserver://([^:;/]+)(?::(\d+))?(.*)$`)
	sqlServerDB   = regexp.MustCompile(`(?i);\s*database(?:name)?\s*=\s*([^;]+)`)
	slashURL      = regexp.MustCompile(`(?i)^jdbc:(?:mysql|mariadb|postgresql|postgres)://([^:/?]+)(?::(\d+))?/([^?;]+)`)
)

// ParseJDBCURL extracts host, port and database name from a JDBC URL.
// Unrecognised URLs yield zero values.
func ParseJDBCURL(url string) (host string, port int, database string) {
	if m := oracleSID.FindStringSubmatch(url); m != nil {
		return m[1], atoi(m[2]), m[3]
	}
	if m := oracleService.FindStringSubmatch(url); m != nil {
		return m[1], atoi(m[2]), m[3]
	}
	if m := sqlServerURL.FindStringSubmatch(url); m != nil {
		host, port = m[1], atoi(m[2])
		if db := sqlServerDB.FindStringSubmatch(m[3]); db != nil {
			database = strings.TrimSpace(db[1])
		}
		return host, port, database
	}
	if m := slashURL.FindStringSubmatch(url); m != nil {
		return m[1], atoi(m[2]), m[3]
	}
	return "", 0, ""
}
