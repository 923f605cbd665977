package dialect

import (
	"encoding/hex"

	"nc-export/internal/home"
)

// Family is one of the supported database families.
type Family string

const (
	MySQL     Family = "mysql"
	Postgres  Family = "postgres"
	SQLServer Family = "sqlserver"
	Oracle    Family = "oracle"
)

// BinaryLiteral renders raw bytes as a SQL literal: 0x<hex> for SQL Server,
// '\x<hex>' for everything else.
func (f Family) BinaryLiteral(b []byte) string {
	if f == SQLServer {
		return "0x" + hex.EncodeToString(b)
	}
	return `'\x` + hex.EncodeToString(b) + "'"
}

// ConnectString is one way of reaching a data source.
type ConnectString struct {
	Label string
	DSN   string
}

// Dialect abstracts database-specific connection handling.
type Dialect interface {
	Family() Family
	DriverName() string

	// ConnectStrings lists the DSNs to try, in order.
	ConnectStrings(ds home.DataSource, creds home.Credentials) ([]ConnectString, error)
}

// Diagnoser is implemented by dialects that can suggest remediation when every
// connect string failed.
type Diagnoser interface {
	Hints() []string
}
