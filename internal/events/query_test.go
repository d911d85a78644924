package events

import (
	"strings"
	"testing"
	"time"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/schema"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func window() Window {
	return Window{
		Now:          time.Date(2025, 8, 14, 10, 0, 0, 0, ist),
		Lookback:     10 * time.Minute,
		ReminderLead: 30 * time.Minute,
	}
}

func TestBuild_NewBill(t *testing.T) {
	q, ok := Build(domain.EventNewBill, schema.DefaultTables, window())
	if !ok {
		t.Fatalf("expected a query")
	}
	want := "SELECT t.*, c.name, c.cont AS phone FROM invoice_1 t LEFT JOIN client c ON t.client = c.id WHERE t.updatetime >= ?"
	if q.SQL != want {
		t.Fatalf("SQL =\n%s\nwant\n%s", q.SQL, want)
	}
	if len(q.Args) != 1 || q.Args[0] != "2025-08-14 09:50:00" {
		t.Fatalf("Args = %v", q.Args)
	}
	if q.Recurring || q.DateColumn != "updatetime" {
		t.Fatalf("meta = %+v", q)
	}
}

func TestBuild_Birthday_IsRecurring(t *testing.T) {
	tables := schema.DefaultTables
	tables.Client = "customer"

	q, ok := Build(domain.EventBirthday, tables, window())
	if !ok {
		t.Fatalf("expected a query")
	}
	want := "SELECT *, id AS client_id, cont AS phone FROM customer WHERE DATE_FORMAT(dob, '%m-%d') = ?"
	if q.SQL != want {
		t.Fatalf("SQL = %s", q.SQL)
	}
	if q.Args[0] != "08-14" || !q.Recurring {
		t.Fatalf("args/recurring = %v %v", q.Args, q.Recurring)
	}

	a, _ := Build(domain.EventAnniversary, tables, window())
	if !strings.Contains(a.SQL, "DATE_FORMAT(aniversary, '%m-%d')") || !a.Recurring {
		t.Fatalf("anniversary SQL = %s", a.SQL)
	}
}

func TestBuild_AppointmentReminder(t *testing.T) {
	q, ok := Build(domain.EventAppointmentReminder, schema.DefaultTables, window())
	if !ok {
		t.Fatalf("expected a query")
	}
	if !strings.Contains(q.SQL, "FROM app_invoice_1 t") ||
		!strings.Contains(q.SQL, "t.appdate = ?") ||
		!strings.Contains(q.SQL, "t.itime LIKE ?") {
		t.Fatalf("SQL = %s", q.SQL)
	}
	if q.Args[0] != "2025-08-14" || q.Args[1] != "10:30%" {
		t.Fatalf("Args = %v", q.Args)
	}
	if q.DateColumn != "appdate" {
		t.Fatalf("DateColumn = %q", q.DateColumn)
	}
}

func TestBuild_AppointmentReminderCrossesMidnight(t *testing.T) {
	w := window()
	w.Now = time.Date(2025, 8, 14, 23, 50, 0, 0, ist)

	q, ok := Build(domain.EventAppointmentReminder, schema.DefaultTables, w)
	if !ok {
		t.Fatalf("expected a query")
	}
	if q.Args[0] != "2025-08-15" || q.Args[1] != "00:20%" {
		t.Fatalf("Args = %v", q.Args)
	}
}

func TestBuild_AppointmentStatuses(t *testing.T) {
	cases := []struct {
		kind   domain.EventKind
		status []any
	}{
		{domain.EventAppointmentCancel, []any{"Cancel", "Deleted"}},
		{domain.EventAppointmentReschedule, []any{"Rescheduled"}},
		{domain.EventNewAppointment, []any{"Pending", "Confirmed"}},
	}
	for _, tc := range cases {
		q, ok := Build(tc.kind, schema.DefaultTables, window())
		if !ok {
			t.Fatalf("%v: expected a query", tc.kind)
		}
		if !strings.Contains(q.SQL, "t.updatetime >= ?") || !strings.Contains(q.SQL, "t.status") {
			t.Fatalf("%v SQL = %s", tc.kind, q.SQL)
		}
		got := q.Args[1:]
		if len(got) != len(tc.status) {
			t.Fatalf("%v args = %v", tc.kind, q.Args)
		}
		for i := range got {
			if got[i] != tc.status[i] {
				t.Fatalf("%v args = %v", tc.kind, q.Args)
			}
		}
	}
}

func TestBuild_RewardMembershipServiceReminder(t *testing.T) {
	r, _ := Build(domain.EventReward, schema.DefaultTables, window())
	if !strings.Contains(r.SQL, "LEFT JOIN client c ON c.id = SUBSTRING_INDEX(t.client_id, ',', -1)") ||
		!strings.Contains(r.SQL, "t.datetime >= ?") || !strings.Contains(r.SQL, "t.point_type = ?") {
		t.Fatalf("reward SQL = %s", r.SQL)
	}
	if r.Args[1] != 1 || r.DateColumn != "datetime" {
		t.Fatalf("reward args/meta = %v %q", r.Args, r.DateColumn)
	}

	m, _ := Build(domain.EventMembership, schema.DefaultTables, window())
	if !strings.Contains(m.SQL, "FROM membership_discount_history t") || !strings.Contains(m.SQL, "t.time_update >= ?") {
		t.Fatalf("membership SQL = %s", m.SQL)
	}

	s, _ := Build(domain.EventServiceReminder, schema.DefaultTables, window())
	if !strings.Contains(s.SQL, "LEFT JOIN client c ON c.id = t.client_id") || !strings.Contains(s.SQL, "t.reminder_date >= ?") {
		t.Fatalf("service reminder SQL = %s", s.SQL)
	}
}

func TestBuild_EnquiryAndPending(t *testing.T) {
	e, _ := Build(domain.EventEnquiry, schema.DefaultTables, window())
	if e.SQL != "SELECT * FROM enquiry WHERE date >= ?" {
		t.Fatalf("enquiry SQL = %s", e.SQL)
	}

	p, _ := Build(domain.EventPendingPayment, schema.DefaultTables, window())
	if !strings.Contains(p.SQL, "t.updatetime >= ? AND t.pending > ?") || p.Args[1] != 0 {
		t.Fatalf("pending SQL = %s args=%v", p.SQL, p.Args)
	}
}

func TestBuild_UsesResolvedDateColumn(t *testing.T) {
	w := window()
	w.DateColumn = func(table string) string {
		if table == "invoice_1" {
			return "entry_date"
		}
		return "updatetime"
	}
	q, _ := Build(domain.EventNewBill, schema.DefaultTables, w)
	if !strings.Contains(q.SQL, "t.entry_date >= ?") || q.DateColumn != "entry_date" {
		t.Fatalf("SQL = %s meta=%q", q.SQL, q.DateColumn)
	}
}

func TestBuild_NoDateColumnSkipsRecencyFilter(t *testing.T) {
	w := window()
	w.Limit = 50
	w.DateColumn = func(string) string { return "" }

	q, ok := Build(domain.EventNewBill, schema.DefaultTables, w)
	if !ok {
		t.Fatalf("expected a query")
	}
	if strings.Contains(q.SQL, "WHERE") {
		t.Fatalf("recency filter should be skipped: %s", q.SQL)
	}
	if !strings.HasSuffix(q.SQL, "ORDER BY t.id DESC LIMIT 50") || len(q.Args) != 0 {
		t.Fatalf("SQL = %s args=%v", q.SQL, q.Args)
	}
	if q.DateColumn != "" {
		t.Fatalf("DateColumn = %q, want none", q.DateColumn)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	if _, ok := Build(domain.EventUnknown, schema.DefaultTables, window()); ok {
		t.Fatalf("unknown kind must not produce a query")
	}
	if _, ok := BuildLatest(domain.EventUnknown, schema.DefaultTables); ok {
		t.Fatalf("unknown kind must not produce a latest query")
	}
}

func TestBuildLatest(t *testing.T) {
	q, ok := BuildLatest(domain.EventNewBill, schema.DefaultTables)
	if !ok {
		t.Fatalf("expected a query")
	}
	want := "SELECT t.*, c.name, c.cont AS phone FROM invoice_1 t LEFT JOIN client c ON t.client = c.id ORDER BY t.id DESC LIMIT 1"
	if q.SQL != want {
		t.Fatalf("SQL = %s", q.SQL)
	}

	b, _ := BuildLatest(domain.EventBirthday, schema.DefaultTables)
	if !strings.HasPrefix(b.SQL, "SELECT *, id AS client_id, cont AS phone FROM client") || !b.Recurring {
		t.Fatalf("birthday latest = %+v", b)
	}

	for _, k := range domain.EventKinds() {
		if _, ok := BuildLatest(k, schema.DefaultTables); !ok {
			t.Fatalf("no latest query for %v", k)
		}
		if _, ok := Build(k, schema.DefaultTables, window()); !ok {
			t.Fatalf("no query for %v", k)
		}
	}
}
