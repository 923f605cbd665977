package dialect

import (
	"nc-export/internal/home"

	"github.com/go-sql-driver/mysql"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Family() Family     { return MySQL }
func (d *MysqlDialect) DriverName() string { return "mysql" }

func (d *MysqlDialect) ConnectStrings(ds home.DataSource, creds home.Credentials) ([]ConnectString, error) {
	cfg := mysql.NewConfig()
	cfg.User = creds.User
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(ds.Host, ds.Port, 3306)
	cfg.DBName = ds.DatabaseName
	// DATETIME columns come back as time.Time instead of []byte.
	cfg.ParseTime = true
	return []ConnectString{{Label: "tcp", DSN: cfg.FormatDSN()}}, nil
}
