package dialect

import (
	"net/url"

	"nc-export/internal/home"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Family() Family     { return SQLServer }
func (d *MSSQLDialect) DriverName() string { return "sqlserver" }

func (d *MSSQLDialect) ConnectStrings(ds home.DataSource, creds home.Credentials) ([]ConnectString, error) {
	q := url.Values{}
	if ds.DatabaseName != "" {
		q.Set("database", ds.DatabaseName)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(creds.User, creds.Password),
		Host:     hostPort(ds.Host, ds.Port, 1433),
		RawQuery: q.Encode(),
	}
	return []ConnectString{{Label: "url", DSN: u.String()}}, nil
}
