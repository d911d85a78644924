// Package remotedb opens short-lived connections to tenant MySQL databases
// and reads arbitrary result sets into generic rows. Tenant schemas vary, so
// nothing here is bound to a model: callers get column-name maps.
package remotedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Params are the connection details of one tenant database.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Conn is an open tenant database connection.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Close() error
}

// Dialer opens tenant connections.
type Dialer interface {
	Dial(ctx context.Context, p Params) (Conn, error)
}

// MySQLDialer dials tenant databases through gorm's MySQL driver.
type MySQLDialer struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Location       *time.Location
}

// DSN renders the go-sql-driver DSN for p.
func (d MySQLDialer) DSN(p Params) string {
	port := p.Port
	if port <= 0 {
		port = 3306
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(port))
	cfg.DBName = p.Database
	cfg.Timeout = d.ConnectTimeout
	cfg.ReadTimeout = d.QueryTimeout
	cfg.ParseTime = true
	cfg.Loc = loc
	cfg.AllowNativePasswords = true
	return cfg.FormatDSN()
}

// Dial opens the connection and pings it so unreachable hosts and bad
// credentials fail here rather than on the first query.
func (d MySQLDialer) Dial(ctx context.Context, p Params) (Conn, error) {
	db, err := gorm.Open(gormmysql.Open(d.DSN(p)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pingCtx := ctx
	if d.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, d.ConnectTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &gormConn{db: db, sqlDB: sqlDB}, nil
}

// FromSQL wraps an already-open *sql.DB speaking MySQL.
func FromSQL(sqlDB *sql.DB) (Conn, error) {
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return &gormConn{db: db, sqlDB: sqlDB}, nil
}

type gormConn struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

func (c *gormConn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

func (c *gormConn) Close() error { return c.sqlDB.Close() }

// Describe turns a dial error into a message an operator can act on.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1045:
			return "access denied: check database user and password"
		case 1044, 1049:
			return "unknown or forbidden database: check database name"
		}
		return fmt.Sprintf("mysql error %d: %s", myErr.Number, myErr.Message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "database unreachable: connection timed out"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "database unreachable: connection timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "database unreachable: " + opErr.Err.Error()
	}
	return err.Error()
}
