package remotedb_test

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diljot111/easy-software/internal/remotedb"
)

func setupMockConn(t *testing.T) (remotedb.Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn, err := remotedb.FromSQL(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mock
}

func TestQuery_ScansGenericRows(t *testing.T) {
	conn, mock := setupMockConn(t)

	visited := time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT t.*, c.name FROM invoice_1 t WHERE t.updatetime >= ?")).
		WithArgs("2025-07-01 10:05:00").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total", "updatetime", "note"}).
			AddRow(int64(15), []byte("Asha"), []byte("450.00"), visited, nil))

	rows, err := conn.Query(context.Background(),
		"SELECT t.*, c.name FROM invoice_1 t WHERE t.updatetime >= ?", "2025-07-01 10:05:00")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "Asha", r["name"], "byte slices become strings")
	assert.Equal(t, int64(15), r.Int("id"))
	total, ok := r.String("total")
	assert.True(t, ok)
	assert.Equal(t, "450.00", total)
	_, ok = r.String("note")
	assert.False(t, ok, "NULL reports not ok")
	at, ok := r.Time("updatetime", time.UTC)
	assert.True(t, ok)
	assert.True(t, at.Equal(visited))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_PropagatesErrors(t *testing.T) {
	conn, mock := setupMockConn(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM enquiry WHERE date >= ?")).
		WillReturnError(errors.New("Table 'salon.enquiry' doesn't exist"))

	_, err := conn.Query(context.Background(), "SELECT * FROM enquiry WHERE date >= ?", "x")
	assert.Error(t, err)
}

func TestRow_FirstAndFallbacks(t *testing.T) {
	r := remotedb.Row{"appdate": "", "date": "2025-02-03", "time": nil, "start_time": "11:30", "points": int64(40)}

	v, ok := r.First("appdate", "appointment_date", "date")
	assert.True(t, ok)
	assert.Equal(t, "2025-02-03", v)

	v, ok = r.First("itime", "time", "start_time")
	assert.True(t, ok)
	assert.Equal(t, "11:30", v)

	_, ok = r.First("missing", "also_missing")
	assert.False(t, ok)

	assert.Equal(t, int64(40), r.Int("points"))
	assert.Equal(t, int64(0), r.Int("nope"))
	assert.Equal(t, int64(12), remotedb.Row{"x": "12.7"}.Int("x"))
}

func TestParseTime_Layouts(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	for _, s := range []string{"2025-03-04", "2025-03-04 09:00:00", "04/03/2025", "04-03-2025"} {
		got, ok := remotedb.ParseTime(s, loc)
		require.True(t, ok, s)
		assert.Equal(t, 2025, got.Year(), s)
		assert.Equal(t, time.March, got.Month(), s)
		assert.Equal(t, 4, got.Day(), s)
	}
	_, ok := remotedb.ParseTime("0000-00-00", loc)
	assert.False(t, ok)
	_, ok = remotedb.ParseTime("not a date", loc)
	assert.False(t, ok)
}

func TestMySQLDialer_DSN(t *testing.T) {
	d := remotedb.MySQLDialer{ConnectTimeout: 5 * time.Second, QueryTimeout: 30 * time.Second}
	dsn := d.DSN(remotedb.Params{Host: "10.0.0.5", User: "app", Password: "p@ss", Database: "salon"})

	assert.True(t, strings.HasPrefix(dsn, "app:p@ss@tcp(10.0.0.5:3306)/salon?"), dsn)
	assert.Contains(t, dsn, "timeout=5s")
	assert.Contains(t, dsn, "readTimeout=30s")
	assert.Contains(t, dsn, "parseTime=true")

	cfg, err := mysql.ParseDSN(d.DSN(remotedb.Params{Host: "db", Port: 3307, Database: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "db:3307", cfg.Addr)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDescribe_ClassifiesConnectivityErrors(t *testing.T) {
	assert.Equal(t, "", remotedb.Describe(nil))
	assert.Contains(t, remotedb.Describe(&mysql.MySQLError{Number: 1045, Message: "Access denied"}), "access denied")
	assert.Contains(t, remotedb.Describe(&mysql.MySQLError{Number: 1049, Message: "Unknown database"}), "unknown")
	assert.Contains(t, remotedb.Describe(&mysql.MySQLError{Number: 1146, Message: "no table"}), "mysql error 1146")

	var netErr net.Error = timeoutErr{}
	assert.Contains(t, remotedb.Describe(netErr), "timed out")
	assert.Contains(t, remotedb.Describe(context.DeadlineExceeded), "timed out")

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.Equal(t, "database unreachable: connection refused", remotedb.Describe(opErr))

	assert.Equal(t, "weird", remotedb.Describe(errors.New("weird")))
}
