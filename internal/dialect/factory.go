package dialect

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedDatabase = errors.New("unsupported database type")

// ParseFamily maps an installation database type (e.g. ORACLE11G, SQLSERVER2008)
// to its family by case-insensitive prefix.
func ParseFamily(databaseType string) (Family, error) {
	t := strings.ToLower(strings.TrimSpace(databaseType))
	switch {
	case strings.HasPrefix(t, "mysql"), strings.HasPrefix(t, "mariadb"):
		return MySQL, nil
	case strings.HasPrefix(t, "postgres"), strings.HasPrefix(t, "pg"):
		return Postgres, nil
	case strings.HasPrefix(t, "sqlserver"), strings.HasPrefix(t, "mssql"):
		return SQLServer, nil
	case strings.HasPrefix(t, "oracle"):
		return Oracle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDatabase, databaseType)
}

// Factory returns the appropriate Dialect implementation for a family.
func GetDialect(f Family) (Dialect, error) {
	switch f {
	case MySQL:
		return &MysqlDialect{}, nil
	case Postgres:
		return &PostgresDialect{}, nil
	case SQLServer:
		return &MSSQLDialect{}, nil
	case Oracle:
		return &OracleDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, string(f))
}

// ForType resolves a database type straight to its dialect.
func ForType(databaseType string) (Dialect, error) {
	f, err := ParseFamily(databaseType)
	if err != nil {
		return nil, err
	}
	return GetDialect(f)
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Diagnoser = (*OracleDialect)(nil)
