package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/remotedb"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/runlock"
)

func newAutomation(db *gorm.DB, d *fakeDialer, s *fakeSender) *AutomationService {
	return &AutomationService{
		DB:        db,
		Dialer:    d,
		Sender:    s,
		Shortener: fakeShortener{},
		Templates: NewTemplateCache(time.Minute),
		Cfg:       testAutomationConfig(),
		Now:       func() time.Time { return frozen },
	}
}

func billRows() []remotedb.Row {
	return []remotedb.Row{
		{"id": int64(1), "name": "Asha", "phone": "9876543210", "branch_id": int64(2)},
		{"id": int64(2), "name": "Ravi", "phone": "9000000001"},
	}
}

func TestRunTenant_MissingTenantIsSuccess(t *testing.T) {
	db := newServiceDB(t)
	d := &fakeDialer{}
	res, err := newAutomation(db, d, &fakeSender{}).RunTenant(context.Background(), 999)
	if err != nil || !res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if d.dials != 0 {
		t.Fatalf("missing tenant must not dial")
	}
}

func TestRunTenant_NoActiveRulesDoesNotDial(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: false})
	d := &fakeDialer{}

	res, err := newAutomation(db, d, &fakeSender{}).RunTenant(context.Background(), tn.ID)
	if err != nil || !res.Success || res.Queued != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if d.dials != 0 {
		t.Fatalf("no rules must not dial, dials=%d", d.dials)
	}
}

func TestRunTenant_SendsNewRowsOnceAndRecordsLedger(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New Bill", TemplateName: "bill_ready", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()}}
	d := &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}
	s := &fakeSender{conn: conn}
	svc := newAutomation(db, d, s)

	res, err := svc.RunTenant(ctx, tn.ID)
	if err != nil || !res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if res.Queued != 2 || res.Sent != 2 || res.Failed != 0 {
		t.Fatalf("counts = %+v", res)
	}

	msgs := s.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages", len(msgs))
	}
	first := msgs[0]
	if !first.connClosed {
		t.Fatalf("tenant connection must be closed before dispatch")
	}
	if first.creds.PhoneNumberID != "PN1" || first.creds.Token != "tok" {
		t.Fatalf("creds = %+v", first.creds)
	}
	if first.msg.To != "9876543210" || first.msg.Name != "bill_ready" || first.msg.Language != "en" {
		t.Fatalf("msg = %+v", first.msg)
	}
	body := params(first.msg.Components, "body")
	if len(body) != 2 || body[0] != "Asha" || body[1] != "https://short.test/1-2" {
		t.Fatalf("body params = %v", body)
	}

	rule := tn.Rules[0]
	for _, ext := range []string{"1", "2"} {
		sent, err := repo.HasBeenSent(ctx, db, tn.ID, rule.ID, ext)
		if err != nil || !sent {
			t.Fatalf("ledger missing %s: %v", ext, err)
		}
	}
	logs, _ := repo.ListLogsPage(ctx, db, tn.ID, 0, 10)
	if len(logs) != 2 || logs[0].Status != domain.StatusSent || !strings.HasPrefix(logs[0].MessageID, "wamid.") {
		t.Fatalf("logs = %+v", logs)
	}

	again, err := svc.RunTenant(ctx, tn.ID)
	if err != nil || !again.Success {
		t.Fatalf("second run res=%+v err=%v", again, err)
	}
	if again.Queued != 0 || again.Skipped != 2 || len(s.messages()) != 2 {
		t.Fatalf("rows must not be sent twice: %+v, sends=%d", again, len(s.messages()))
	}
}

func TestRunTenant_RecurringKeyCarriesYearAndFailingRuleIsSkipped(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local",
		domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true},
		domain.AutomationRule{EventType: "Happy Birthday", TemplateName: "bday", IsActive: true},
	)
	conn := &fakeConn{
		errs: map[string]error{"invoice_1": errors.New("Unknown column 't.client'")},
		data: map[string][]remotedb.Row{
			"client": {{"id": int64(5), "name": "Meera", "cont": "9000000005", "dob": "1990-08-14"}},
		},
	}
	s := &fakeSender{}
	res, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s).RunTenant(ctx, tn.ID)
	if err != nil || !res.Success || res.Sent != 1 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if got := params(s.messages()[0].msg.Components, "body"); len(got) != 1 || got[0] != "Meera" {
		t.Fatalf("birthday params = %v", got)
	}
	sent, _ := repo.HasBeenSent(ctx, db, tn.ID, tn.Rules[1].ID, "5_2025")
	if !sent {
		t.Fatalf("birthday ledger key should carry the year")
	}
}

func TestRunTenant_FailuresCountAttemptsUntilMax(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()[:1]}}
	s := &fakeSender{failAll: errors.New("provider down")}
	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)

	for i := 1; i <= 2; i++ {
		res, err := svc.RunTenant(ctx, tn.ID)
		if err != nil || !res.Success || res.Failed != 1 || res.Sent != 0 {
			t.Fatalf("run %d: res=%+v err=%v", i, res, err)
		}
		n, _ := repo.Attempts(ctx, db, tn.ID, tn.Rules[0].ID, "1")
		if n != i {
			t.Fatalf("run %d: attempts = %d", i, n)
		}
	}

	res, err := svc.RunTenant(ctx, tn.ID)
	if err != nil || res.Queued != 0 || res.Skipped != 1 {
		t.Fatalf("exhausted job must not be queued: res=%+v err=%v", res, err)
	}
	if sent, _ := repo.HasBeenSent(ctx, db, tn.ID, tn.Rules[0].ID, "1"); sent {
		t.Fatalf("failed job must not reach the ledger")
	}
}

func TestRunTenant_MissingRecipientFailsJob(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": {{"id": int64(9), "name": "No Phone"}}}}
	s := &fakeSender{}

	res, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s).RunTenant(ctx, tn.ID)
	if err != nil || res.Failed != 1 || len(s.messages()) != 0 {
		t.Fatalf("res=%+v err=%v sends=%d", res, err, len(s.messages()))
	}
	var a domain.DispatchAttempt
	if err := db.Where("external_id = ?", "9").First(&a).Error; err != nil {
		t.Fatalf("attempt row: %v", err)
	}
	if a.Attempts != 1 || !strings.Contains(a.LastError, "recipient") {
		t.Fatalf("attempt = %+v", a)
	}
}

func TestRunTenant_UsesTemplateMappingsAndHeader(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "new bill", TemplateName: "bill_v2", IsActive: true})
	tpl := &domain.WhatsAppTemplate{
		TenantID:        tn.ID,
		Name:            "bill_v2",
		Status:          "APPROVED",
		Language:        "en_US",
		Components:      datatypes.JSON(`[{"type":"HEADER","text":"{{1}}"},{"type":"BODY","text":"Hi {{1}}, {{2}}"}]`),
		HeaderVariables: 1,
		BodyVariables:   2,
		TotalVariables:  3,
	}
	if err := repo.UpsertTemplate(ctx, db, tpl); err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	if err := repo.UpdateMappings(ctx, db, tn.ID, "bill_v2", datatypes.JSONMap{"1": "system.name", "2": "client.name", "3": "Thanks!"}); err != nil {
		t.Fatalf("UpdateMappings: %v", err)
	}
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()[:1]}}
	s := &fakeSender{}

	if _, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s).RunTenant(ctx, tn.ID); err != nil {
		t.Fatalf("RunTenant: %v", err)
	}
	msg := s.messages()[0].msg
	if h := params(msg.Components, "header"); len(h) != 1 || h[0] != "Glow Studio" {
		t.Fatalf("header = %v", h)
	}
	if b := params(msg.Components, "body"); len(b) != 2 || b[0] != "Asha" || b[1] != "Thanks!" {
		t.Fatalf("body = %v", b)
	}
	if msg.Language != "en_US" {
		t.Fatalf("language = %q", msg.Language)
	}
}

func TestRunTenant_ConnectionErrorStopsBeforeDispatch(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.down", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	s := &fakeSender{}
	d := &fakeDialer{errs: map[string]error{"db.down": errors.New("dial tcp 10.0.0.9:3306: connect: connection refused")}}

	res, err := newAutomation(db, d, s).RunTenant(context.Background(), tn.ID)
	if !errors.Is(err, ErrConnection) || res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if !strings.Contains(res.Error, "connection refused") || len(s.messages()) != 0 {
		t.Fatalf("res=%+v sends=%d", res, len(s.messages()))
	}
}

func TestRunTenant_NoDatabaseHostFails(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	_, err := newAutomation(db, &fakeDialer{}, &fakeSender{}).RunTenant(context.Background(), tn.ID)
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunTenant_MissingSenderCredentials(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	if err := db.Model(&domain.Tenant{}).Where("id = ?", tn.ID).Update("meta_token", "").Error; err != nil {
		t.Fatalf("clear token: %v", err)
	}
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()}}

	res, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, &fakeSender{}).RunTenant(context.Background(), tn.ID)
	if !errors.Is(err, ErrMissingCredentials) || res.Queued != 2 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestRunTenant_LockedTenantReportsInProgress(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	locker := runlock.NewLocalLocker()
	lease, ok, _ := locker.Acquire(context.Background(), "tenant:"+strconv.FormatUint(uint64(tn.ID), 10), time.Minute)
	if !ok {
		t.Fatal("pre-acquire failed")
	}
	defer lease.Release()

	svc := newAutomation(db, &fakeDialer{}, &fakeSender{})
	svc.Locker = locker
	res, err := svc.RunTenant(context.Background(), tn.ID)
	if !errors.Is(err, ErrRunInProgress) || res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestRunAll_IsolatesTenantFailures(t *testing.T) {
	db := newServiceDB(t)
	rule := domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true}
	a := seedTenant(t, db, "db.a", rule)
	b := seedTenant(t, db, "db.b", rule)
	seedTenant(t, db, "", rule) // no host: not part of the sweep

	d := &fakeDialer{
		conns: map[string]*fakeConn{"db.a": {data: map[string][]remotedb.Row{"invoice_1": billRows()[:1]}}},
		errs:  map[string]error{"db.b": errors.New("access denied")},
	}
	results, err := newAutomation(db, d, &fakeSender{}).RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].TenantID != a.ID || !results[0].Success || results[0].Sent != 1 {
		t.Fatalf("tenant a = %+v", results[0])
	}
	if results[1].TenantID != b.ID || results[1].Success || results[1].Error == "" {
		t.Fatalf("tenant b = %+v", results[1])
	}
}

func TestRunRule_RunsOnlyThatRule(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local",
		domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true},
		domain.AutomationRule{EventType: "Birthday", TemplateName: "bday", IsActive: false},
	)
	conn := &fakeConn{data: map[string][]remotedb.Row{
		"invoice_1": billRows(),
		"client":    {{"id": int64(5), "name": "Meera", "cont": "9000000005"}},
	}}
	s := &fakeSender{}
	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)

	res, err := svc.RunRule(ctx, tn.Rules[1].ID)
	if err != nil || res.Sent != 1 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	qs := conn.eventQueries()
	if len(qs) != 1 || !strings.Contains(qs[0], "FROM client") {
		t.Fatalf("queries = %v", qs)
	}
	if s.messages()[0].msg.Name != "bday" {
		t.Fatalf("sent %+v", s.messages()[0].msg)
	}

	if _, err := svc.RunRule(ctx, 12345); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestTestRule_SendsLatestRowWithoutLedger(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()[:1]}}
	s := &fakeSender{}
	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)

	out, err := svc.TestRule(ctx, tn.Rules[0].ID, "")
	if err != nil {
		t.Fatalf("TestRule: %v", err)
	}
	if out.UsedSample || out.To != "919876543210" || out.MessageID != "wamid.1" {
		t.Fatalf("out = %+v", out)
	}
	if len(out.Params) != 2 || out.Params[0] != "Asha" {
		t.Fatalf("params = %v", out.Params)
	}
	if !strings.Contains(conn.eventQueries()[0], "ORDER BY t.id DESC LIMIT 1") {
		t.Fatalf("query = %v", conn.eventQueries())
	}
	if n, _ := repo.CountLogs(ctx, db, tn.ID); n != 0 {
		t.Fatalf("test sends must not touch the ledger, logs=%d", n)
	}

	out, err = svc.TestRule(ctx, tn.Rules[0].ID, "+91 90000 00000")
	if err != nil || out.To != "919000000000" {
		t.Fatalf("override out=%+v err=%v", out, err)
	}
}

func TestTestRule_FallsBackToSampleData(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.down", domain.AutomationRule{EventType: "Reward points", TemplateName: "pts", IsActive: true})
	s := &fakeSender{}
	svc := newAutomation(db, &fakeDialer{errs: map[string]error{"db.down": errors.New("timeout")}}, s)

	out, err := svc.TestRule(context.Background(), tn.Rules[0].ID, "")
	if err != nil || !out.UsedSample {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if len(out.Params) != 1 || out.Params[0] != "50" {
		t.Fatalf("params = %v", out.Params)
	}
	if _, err := svc.TestRule(context.Background(), 999, ""); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func invoiceRows(n int) []remotedb.Row {
	rows := make([]remotedb.Row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, remotedb.Row{"id": int64(i), "name": "Client " + strconv.Itoa(i), "phone": "90000000" + strconv.Itoa(10+i)})
	}
	return rows
}

func TestRunTenant_DuplicateRowIDsSendOnce(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": {
		{"id": int64(7), "name": "Asha", "phone": "9876543210"},
		{"id": int64(7), "name": "Asha", "phone": "9876543210"},
	}}}
	s := &fakeSender{}

	res, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s).RunTenant(ctx, tn.ID)
	if err != nil || !res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if res.Queued != 1 || res.Sent != 1 || res.Skipped != 1 || len(s.messages()) != 1 {
		t.Fatalf("duplicate row sent twice: %+v, sends=%d", res, len(s.messages()))
	}
}

func TestRunTenant_RowLedgeredMidQueueIsNotResent(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	rule := tn.Rules[0]
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": billRows()}}
	s := &fakeSender{}
	// Another run delivers row 2 while this one is still sending row 1.
	s.beforeSend = func(n int) {
		if n == 0 {
			if _, err := repo.RecordSent(ctx, db, tn.ID, rule.ID, "2", domain.StatusSent, "wamid.other"); err != nil {
				t.Errorf("RecordSent: %v", err)
			}
		}
	}

	res, err := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s).RunTenant(ctx, tn.ID)
	if err != nil || !res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if res.Queued != 2 || res.Sent != 1 || res.Failed != 0 || res.Skipped != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if msgs := s.messages(); len(msgs) != 1 || msgs[0].msg.To != "9876543210" {
		t.Fatalf("sent %d messages", len(msgs))
	}
	if n, _ := repo.Attempts(ctx, db, tn.ID, rule.ID, "2"); n != 0 {
		t.Fatalf("a skipped row must not count as a failed attempt, attempts=%d", n)
	}
}

func TestRunTenant_RefreshesLockBeforeEachSend(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": invoiceRows(4)}}
	lease := &fakeLease{}
	s := &fakeSender{}
	s.beforeSend = func(n int) {
		if got := lease.refreshes(); got != n+1 {
			t.Errorf("send %d went out after %d lock refreshes", n+1, got)
		}
	}

	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)
	svc.Locker = &fakeLocker{lease: lease}
	svc.Cfg.RunLockTTL = 100 * time.Millisecond
	svc.Cfg.SendInterval = 10 * time.Millisecond

	res, err := svc.RunTenant(context.Background(), tn.ID)
	if err != nil || res.Sent != 4 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	for _, ttl := range lease.extends {
		if ttl != 100*time.Millisecond {
			t.Fatalf("refresh ttl = %v", ttl)
		}
	}
	if !lease.released {
		t.Fatalf("lease must be released when the run ends")
	}
}

func TestRunTenant_LockLostAbandonsQueue(t *testing.T) {
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": invoiceRows(4)}}
	s := &fakeSender{}

	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)
	svc.Locker = &fakeLocker{lease: &fakeLease{lostAfter: 2}}

	res, err := svc.RunTenant(context.Background(), tn.ID)
	if !errors.Is(err, ErrLockLost) || res.Success {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if res.Sent != 2 || res.Failed != 0 || len(s.messages()) != 2 {
		t.Fatalf("counts = %+v, sends=%d", res, len(s.messages()))
	}
}

func TestRunTenant_OverlappingRunWaitsForPacedQueue(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "New bill", TemplateName: "bill", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{"invoice_1": invoiceRows(4)}}
	s := &fakeSender{}

	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)
	svc.Locker = runlock.NewLocalLocker()
	svc.Cfg.RunLockTTL = 100 * time.Millisecond
	svc.Cfg.SendInterval = 80 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunTenant(ctx, tn.ID)
		done <- err
	}()

	// Past the configured TTL, the first run is still draining its queue.
	time.Sleep(150 * time.Millisecond)
	if _, err := svc.RunTenant(ctx, tn.ID); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("overlapping run: err=%v, want ErrRunInProgress", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if n := len(s.messages()); n != 4 {
		t.Fatalf("sent %d messages for 4 rows", n)
	}
}

func TestRunTenant_BirthdayGreetsOncePerYear(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "Happy Birthday", TemplateName: "bday", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{
		"client": {{"id": int64(5), "name": "Meera", "cont": "9000000005", "dob": "1990-08-14"}},
	}}
	s := &fakeSender{}
	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)

	for i := 0; i < 2; i++ {
		if _, err := svc.RunTenant(ctx, tn.ID); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if n := len(s.messages()); n != 1 {
		t.Fatalf("same-day reruns sent %d greetings", n)
	}

	svc.Now = func() time.Time { return frozen.AddDate(1, 0, 0) }
	res, err := svc.RunTenant(ctx, tn.ID)
	if err != nil || res.Sent != 1 || len(s.messages()) != 2 {
		t.Fatalf("next year: res=%+v err=%v sends=%d", res, err, len(s.messages()))
	}
	if sent, _ := repo.HasBeenSent(ctx, db, tn.ID, tn.Rules[0].ID, "5_2026"); !sent {
		t.Fatalf("next year's greeting must be keyed 5_2026")
	}
}

func TestRunTenant_BirthdaysArePacedAndLedgered(t *testing.T) {
	ctx := context.Background()
	db := newServiceDB(t)
	tn := seedTenant(t, db, "db.local", domain.AutomationRule{EventType: "Happy Birthday", TemplateName: "bday", IsActive: true})
	conn := &fakeConn{data: map[string][]remotedb.Row{
		"client": {
			{"id": int64(5), "name": "Meera", "cont": "9000000005", "dob": "1990-08-14"},
			{"id": int64(6), "name": "Kabir", "cont": "9000000006", "dob": "1988-08-14"},
		},
	}}
	s := &fakeSender{}
	svc := newAutomation(db, &fakeDialer{conns: map[string]*fakeConn{"db.local": conn}}, s)
	svc.Cfg.SendInterval = 50 * time.Millisecond

	res, err := svc.RunTenant(ctx, tn.ID)
	if err != nil || res.Sent != 2 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	for _, ext := range []string{"5_2025", "6_2025"} {
		if sent, _ := repo.HasBeenSent(ctx, db, tn.ID, tn.Rules[0].ID, ext); !sent {
			t.Fatalf("ledger missing %s", ext)
		}
	}
	logs, _ := repo.ListLogsPage(ctx, db, tn.ID, 0, 10)
	if len(logs) != 2 {
		t.Fatalf("ledger rows = %d", len(logs))
	}
	msgs := s.messages()
	if gap := msgs[1].at.Sub(msgs[0].at); gap < svc.Cfg.SendInterval {
		t.Fatalf("greetings %v apart, want >= %v", gap, svc.Cfg.SendInterval)
	}
}
