package dbutils

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Target is a database/sql driver name and the DSN it understands.
type Target struct {
	Driver string
	DSN    string
}

// Parses a database URI (postgres://, mysql://, sqlite://) into a driver and DSN.
// sqlite URIs follow the usual convention: sqlite:///relative.db and sqlite:////abs/path.db.
func ParseURI(uri string) (Target, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Target{}, fmt.Errorf("invalid database uri %q", uri)
	}

	// dialect+driver schemes (mysql+mysqldb://) only matter for the dialect
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch dialect {
	case "postgres", "postgresql":
		return Target{Driver: "postgres", DSN: "postgres://" + rest}, nil
	case "mysql":
		dsn, err := mysqlDSN(uri)
		if err != nil {
			return Target{}, err
		}
		return Target{Driver: "mysql", DSN: dsn}, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return Target{Driver: "sqlite3", DSN: path}, nil
	}

	return Target{}, fmt.Errorf("unsupported database scheme %q", scheme)
}

func mysqlDSN(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	if q := u.Query(); len(q) > 0 {
		cfg.Params = map[string]string{}
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}

	return cfg.FormatDSN(), nil
}

// Opens and pings a raw driver connection.
func Open(uri string) (*sqlx.DB, error) {
	target, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return sqlx.Connect(target.Driver, target.DSN)
}

// Opens a gorm connection with its logger silenced, so that logging does not add to
// the measured time.
func OpenGorm(uri string) (*gorm.DB, error) {
	target, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch target.Driver {
	case "postgres":
		dialector = postgres.Open(target.DSN)
	case "mysql":
		dialector = gormmysql.Open(target.DSN)
	case "sqlite3":
		dialector = sqlite.Open(target.DSN)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// Quotes an identifier for the given driver. "show" is a reserved word in MySQL.
func QuoteIdent(driver, name string) string {
	if driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
