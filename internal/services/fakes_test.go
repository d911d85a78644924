package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diljot111/easy-software/internal/config"
	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/remotedb"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/runlock"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// frozen is the wall clock every orchestrator test runs at.
var frozen = time.Date(2025, 8, 14, 10, 0, 0, 0, ist)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testAutomationConfig() config.AutomationConfig {
	return config.AutomationConfig{
		Lookback:        10 * time.Minute,
		SendInterval:    0,
		ReminderLead:    30 * time.Minute,
		MaxAttempts:     2,
		Timezone:        "Asia/Kolkata",
		Language:        "en",
		RunLockTTL:      time.Minute,
		BusinessDefault: "Our Salon",
	}
}

// fakeConn answers schema lookups and event queries from canned rows keyed
// by table name.
type fakeConn struct {
	mu      sync.Mutex
	tables  []string
	columns map[string][]string
	data    map[string][]remotedb.Row
	errs    map[string]error
	queries []string
	closed  bool
}

func (c *fakeConn) Query(_ context.Context, q string, args ...any) ([]remotedb.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)

	switch {
	case strings.Contains(q, "INFORMATION_SCHEMA.TABLES"):
		out := make([]remotedb.Row, 0, len(c.tables))
		for _, n := range c.tables {
			out = append(out, remotedb.Row{"TABLE_NAME": n})
		}
		return out, nil
	case strings.Contains(q, "INFORMATION_SCHEMA.COLUMNS"):
		table, _ := args[0].(string)
		cols, ok := c.columns[table]
		if !ok {
			cols = []string{"id", "updatetime"}
		}
		out := make([]remotedb.Row, 0, len(cols))
		for _, n := range cols {
			out = append(out, remotedb.Row{"COLUMN_NAME": n})
		}
		return out, nil
	}
	for table, err := range c.errs {
		if fromTable(q, table) {
			return nil, err
		}
	}
	for table, rows := range c.data {
		if fromTable(q, table) {
			return rows, nil
		}
	}
	return nil, nil
}

func fromTable(q, table string) bool {
	return strings.Contains(q, "FROM "+table+" ") || strings.HasSuffix(q, "FROM "+table)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) eventQueries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, q := range c.queries {
		if !strings.Contains(q, "INFORMATION_SCHEMA") {
			out = append(out, q)
		}
	}
	return out
}

// fakeDialer hands out connections by host.
type fakeDialer struct {
	conns map[string]*fakeConn
	errs  map[string]error
	dials int
}

func (d *fakeDialer) Dial(_ context.Context, p remotedb.Params) (remotedb.Conn, error) {
	d.dials++
	if err, ok := d.errs[p.Host]; ok {
		return nil, err
	}
	if c, ok := d.conns[p.Host]; ok {
		return c, nil
	}
	return nil, errors.New("no route to host")
}

type sentMessage struct {
	creds      whatsapp.Credentials
	msg        whatsapp.TemplateMessage
	connClosed bool
	at         time.Time
}

// fakeSender records sends. failTo makes sends to those raw numbers fail.
// beforeSend, when set, runs ahead of every send with the number of
// messages already sent.
type fakeSender struct {
	mu         sync.Mutex
	sent       []sentMessage
	failTo     map[string]error
	failAll    error
	conn       *fakeConn
	beforeSend func(n int)
}

func (s *fakeSender) Send(_ context.Context, creds whatsapp.Credentials, msg whatsapp.TemplateMessage) (whatsapp.SendResult, error) {
	s.mu.Lock()
	hook, n := s.beforeSend, len(s.sent)
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return whatsapp.SendResult{}, s.failAll
	}
	if err, ok := s.failTo[msg.To]; ok {
		return whatsapp.SendResult{}, err
	}
	closed := false
	if s.conn != nil {
		closed = s.conn.isClosed()
	}
	s.sent = append(s.sent, sentMessage{creds: creds, msg: msg, connClosed: closed, at: time.Now()})
	return whatsapp.SendResult{MessageID: fmt.Sprintf("wamid.%d", len(s.sent))}, nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type fakeShortener struct{}

func (fakeShortener) Shorten(_ context.Context, invoiceID, branchID int64, _ string) string {
	return fmt.Sprintf("https://short.test/%d-%d", invoiceID, branchID)
}

func params(c []whatsapp.Component, typ string) []string {
	var out []string
	for _, comp := range c {
		if comp.Type != typ {
			continue
		}
		for _, p := range comp.Parameters {
			out = append(out, p.Text)
		}
	}
	return out
}

// seedTenant stores a fully configured tenant plus the given rules.
func seedTenant(t *testing.T, db *gorm.DB, host string, rules ...domain.AutomationRule) *domain.Tenant {
	t.Helper()
	ctx := context.Background()
	tn := &domain.Tenant{
		BusinessName:  "Glow Studio",
		DBHost:        host,
		DBUser:        "u",
		DBName:        "salon",
		DBPort:        3306,
		WABAID:        "WABA1",
		PhoneNumberID: "PN1",
		MetaToken:     "tok",
		BaseURL:       "https://salon.example",
	}
	if err := repo.CreateTenant(ctx, db, tn); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	for i := range rules {
		rules[i].TenantID = tn.ID
		if err := repo.CreateRule(ctx, db, &rules[i]); err != nil {
			t.Fatalf("CreateRule: %v", err)
		}
		tn.Rules = append(tn.Rules, rules[i])
	}
	return tn
}

// fakeLease counts refreshes. With lostAfter > 0 every Extend past that
// many successful ones reports the lease as lost.
type fakeLease struct {
	mu        sync.Mutex
	extends   []time.Duration
	lostAfter int
	released  bool
}

func (l *fakeLease) Extend(_ context.Context, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lostAfter > 0 && len(l.extends) >= l.lostAfter {
		return runlock.ErrLost
	}
	l.extends = append(l.extends, ttl)
	return nil
}

func (l *fakeLease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = true
}

func (l *fakeLease) refreshes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.extends)
}

type fakeLocker struct{ lease *fakeLease }

func (f *fakeLocker) Acquire(context.Context, string, time.Duration) (runlock.Lease, bool, error) {
	return f.lease, true, nil
}
