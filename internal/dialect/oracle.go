package dialect

import (
	"fmt"
	"net/url"

	"nc-export/internal/home"

	go_ora "github.com/sijms/go-ora/v2"
)

type OracleDialect struct{}

func (d *OracleDialect) Family() Family     { return Oracle }
func (d *OracleDialect) DriverName() string { return "oracle" }

// ClientMode is always thin: go-ora speaks the wire protocol itself and never
// loads an Instant Client.
func (d *OracleDialect) ClientMode() string { return "thin" }

// ConnectStrings tries the database name as a service name, then as a SID,
// then a simplified URL on the listener's default port.
func (d *OracleDialect) ConnectStrings(ds home.DataSource, creds home.Credentials) ([]ConnectString, error) {
	if ds.Host == "" {
		return nil, fmt.Errorf("oracle data source %q has no host", ds.Name)
	}
	port := ds.Port
	if port == 0 {
		port = 1521
	}

	simplified := url.URL{
		Scheme: "oracle",
		User:   url.UserPassword(creds.User, creds.Password),
		Host:   ds.Host,
		Path:   "/" + ds.DatabaseName,
	}

	return []ConnectString{
		{Label: "service name", DSN: go_ora.BuildUrl(ds.Host, port, ds.DatabaseName, creds.User, creds.Password, nil)},
		{Label: "SID", DSN: go_ora.BuildUrl(ds.Host, port, "", creds.User, creds.Password, map[string]string{"SID": ds.DatabaseName})},
		{Label: "simplified", DSN: simplified.String()},
	}, nil
}

func (d *OracleDialect) Hints() []string {
	return []string{
		"check that the listener is reachable and the service name or SID is correct",
		"check version compatibility: the thin client needs Oracle 10g or later",
		"for servers that only accept thick clients, check the Instant Client installation",
	}
}
