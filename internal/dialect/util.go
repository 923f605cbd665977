package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"nc-export/internal/home"
	"nc-export/internal/schema"
)

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Attempt records one failed connect string.
type Attempt struct {
	Label string
	Err   error
}

// ConnectError is returned when no connect string of a data source worked.
type ConnectError struct {
	Family   Family
	Source   string
	Attempts []Attempt
	Hints    []string
}

func (e *ConnectError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to connect to %s data source %q", e.Family, e.Source)
	if len(e.Attempts) == 1 {
		fmt.Fprintf(&b, ": %v", e.Attempts[0].Err)
	} else {
		b.WriteString("; tried:")
		for _, a := range e.Attempts {
			fmt.Fprintf(&b, "\n  - %s: %v", a.Label, a.Err)
		}
	}
	if len(e.Hints) > 0 {
		b.WriteString("\nhints:")
		for _, h := range e.Hints {
			b.WriteString("\n  - " + h)
		}
	}
	return b.String()
}

func (e *ConnectError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// errQuery marks a failure that happened after a connection was established;
// those are not retried with another connect string.
type errQuery struct{ err error }

func (e errQuery) Error() string { return e.err.Error() }
func (e errQuery) Unwrap() error { return e.err }

// QueryRows runs query against ds on a fresh connection that is closed before
// returning. Connect strings are tried in order until one connects.
func QueryRows(ctx context.Context, d Dialect, ds home.DataSource, creds home.Credentials, query string) ([]schema.Row, error) {
	targets, err := d.ConnectStrings(ds, creds)
	if err != nil {
		return nil, err
	}

	cerr := &ConnectError{Family: d.Family(), Source: ds.Name}
	for _, cs := range targets {
		rows, err := queryOnce(ctx, d.DriverName(), cs.DSN, query)
		if err == nil {
			return rows, nil
		}
		var qe errQuery
		if errors.As(err, &qe) {
			return nil, fmt.Errorf("query failed on %s: %w", ds.Name, qe.err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cerr.Attempts = append(cerr.Attempts, Attempt{Label: cs.Label, Err: err})
	}
	if diag, ok := d.(Diagnoser); ok {
		cerr.Hints = diag.Hints()
	}
	return nil, cerr
}

func queryOnce(ctx context.Context, driver, dsn, query string) ([]schema.Row, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errQuery{err}
	}
	defer rows.Close()

	out, err := ScanRows(rows)
	if err != nil {
		return nil, errQuery{err}
	}
	return out, nil
}

// ScanRows drains rows into plain column/value rows.
func ScanRows(rows *sql.Rows) ([]schema.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	var out []schema.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i := range values {
			values[i] = NormalizeValue(types[i].DatabaseTypeName(), values[i])
		}
		out = append(out, schema.Row{Columns: cols, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// NormalizeValue turns driver []byte values of textual or numeric columns into
// strings. Binary columns keep their bytes.
func NormalizeValue(typeName string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if IsBinaryType(typeName) {
		return b
	}
	return string(b)
}

func IsBinaryType(typeName string) bool {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	switch t {
	case "BYTEA", "IMAGE", "RAW", "LONG RAW", "BFILE":
		return true
	}
	return strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY")
}
