package dialect

import (
	"net/url"

	"nc-export/internal/home"

	_ "github.com/lib/pq"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Family() Family     { return Postgres }
func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) ConnectStrings(ds home.DataSource, creds home.Credentials) ([]ConnectString, error) {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(creds.User, creds.Password),
		Host:     hostPort(ds.Host, ds.Port, 5432),
		Path:     "/" + ds.DatabaseName,
		RawQuery: "sslmode=disable",
	}
	return []ConnectString{{Label: "url", DSN: u.String()}}, nil
}
