package dialect

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"nc-export/internal/home"

	_ "modernc.org/sqlite"
)

func TestParseFamily(t *testing.T) {
	tests := map[string]Family{
		"ORACLE11G":     Oracle,
		"oracle":        Oracle,
		"SQLSERVER2008": SQLServer,
		"MSSQL":         SQLServer,
		"MySQL8":        MySQL,
		"PostgreSQL":    Postgres,
		" postgres14 ":  Postgres,
		"MariaDB":       MySQL,
	}
	for in, want := range tests {
		got, err := ParseFamily(in)
		if err != nil || got != want {
			t.Errorf("ParseFamily(%q) = %q, %v", in, got, err)
		}
	}

	if _, err := ParseFamily("DB2"); !errors.Is(err, ErrUnsupportedDatabase) {
		t.Errorf("expected ErrUnsupportedDatabase, got %v", err)
	}
	if _, err := ForType("informix"); !errors.Is(err, ErrUnsupportedDatabase) {
		t.Errorf("expected ErrUnsupportedDatabase from ForType, got %v", err)
	}
}

func TestBinaryLiteral(t *testing.T) {
	b := []byte{0xde, 0xad, 0x01}
	if got := SQLServer.BinaryLiteral(b); got != "0xdead01" {
		t.Errorf("sqlserver literal = %s", got)
	}
	for _, f := range []Family{MySQL, Postgres, Oracle} {
		if got := f.BinaryLiteral(b); got != `'\xdead01'` {
			t.Errorf("%s literal = %s", f, got)
		}
	}
}

func TestConnectStrings(t *testing.T) {
	ds := home.DataSource{Name: "base", Host: "db", Port: 0, DatabaseName: "nc"}
	creds := home.Credentials{User: "u", Password: "p@ss"}

	my, _ := (&MysqlDialect{}).ConnectStrings(ds, creds)
	if !strings.Contains(my[0].DSN, "tcp(db:3306)/nc") || !strings.Contains(my[0].DSN, "parseTime=true") {
		t.Errorf("mysql dsn = %s", my[0].DSN)
	}
	pg, _ := (&PostgresDialect{}).ConnectStrings(ds, creds)
	if !strings.HasPrefix(pg[0].DSN, "postgres://u:p%40ss@db:5432/nc") {
		t.Errorf("postgres dsn = %s", pg[0].DSN)
	}
	ms, _ := (&MSSQLDialect{}).ConnectStrings(ds, creds)
	if !strings.Contains(ms[0].DSN, "db:1433") || !strings.Contains(ms[0].DSN, "database=nc") {
		t.Errorf("sqlserver dsn = %s", ms[0].DSN)
	}
	ora, err := (&OracleDialect{}).ConnectStrings(ds, creds)
	if err != nil || len(ora) != 3 {
		t.Fatalf("oracle connect strings = %v, %v", ora, err)
	}
	if ora[0].Label != "service name" || ora[1].Label != "SID" || ora[2].Label != "simplified" {
		t.Errorf("oracle order = %v", ora)
	}
	if _, err := (&OracleDialect{}).ConnectStrings(home.DataSource{}, creds); err == nil {
		t.Error("expected error for oracle without host")
	}
}

func TestScanRowsNormalizesValues(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE bd_customer (id INTEGER, name TEXT, photo BLOB, memo TEXT)`,
		`INSERT INTO bd_customer VALUES (1, 'O''Brien', x'0102ff', NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	rows, err := db.Query(`SELECT * FROM bd_customer`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	got, err := ScanRows(rows)
	if err != nil {
		t.Fatalf("ScanRows: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	r := got[0]
	if name, _ := r.Get("NAME"); name != "O'Brien" {
		t.Errorf("name = %#v", name)
	}
	if photo, _ := r.Get("photo"); string(photo.([]byte)) != "\x01\x02\xff" {
		t.Errorf("photo = %#v", photo)
	}
	if memo, ok := r.Get("memo"); !ok || memo != nil {
		t.Errorf("memo = %#v", memo)
	}
	if id, _ := r.Get("id"); id != int64(1) {
		t.Errorf("id = %#v", id)
	}
}

func TestNormalizeValue(t *testing.T) {
	if v := NormalizeValue("DECIMAL", []byte("12.50")); v != "12.50" {
		t.Errorf("decimal = %#v", v)
	}
	if v := NormalizeValue("VARBINARY", []byte{1}); string(v.([]byte)) != "\x01" {
		t.Errorf("varbinary = %#v", v)
	}
	if v := NormalizeValue("INT", int64(3)); v != int64(3) {
		t.Errorf("int = %#v", v)
	}
}

// sqliteDialect lets the connect-string fallback run against a real driver.
type sqliteDialect struct {
	targets []ConnectString
}

func (d *sqliteDialect) Family() Family     { return "sqlite" }
func (d *sqliteDialect) DriverName() string { return "sqlite" }
func (d *sqliteDialect) ConnectStrings(home.DataSource, home.Credentials) ([]ConnectString, error) {
	return d.targets, nil
}
func (d *sqliteDialect) Hints() []string { return []string{"check the file"} }

func TestQueryRowsFallsBackAcrossConnectStrings(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.db")
	db, err := sql.Open("sqlite", good)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO t VALUES (7)`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	bad := "file:" + filepath.Join(dir, "missing", "nope.db") + "?mode=ro"
	d := &sqliteDialect{targets: []ConnectString{{Label: "bad", DSN: bad}, {Label: "good", DSN: good}}}

	rows, err := QueryRows(context.Background(), d, home.DataSource{Name: "test"}, home.Credentials{}, "SELECT id FROM t")
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	d.targets = d.targets[:1]
	_, err = QueryRows(context.Background(), d, home.DataSource{Name: "test"}, home.Credentials{}, "SELECT 1")
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if len(cerr.Hints) != 1 || !strings.Contains(cerr.Error(), "check the file") {
		t.Errorf("hints missing from %q", cerr.Error())
	}
}

func TestQueryRowsDoesNotRetryQueryErrors(t *testing.T) {
	good := filepath.Join(t.TempDir(), "good.db")
	d := &sqliteDialect{targets: []ConnectString{{Label: "a", DSN: good}, {Label: "b", DSN: good}}}

	_, err := QueryRows(context.Background(), d, home.DataSource{Name: "test"}, home.Credentials{}, "SELECT * FROM no_such_table")
	if err == nil {
		t.Fatal("expected query error")
	}
	var cerr *ConnectError
	if errors.As(err, &cerr) {
		t.Errorf("query error reported as connect error: %v", err)
	}
}
