// Package events turns an event kind into the SQL that finds matching rows
// in a tenant's legacy database. Queries are built with squirrel using "?"
// placeholders; table names come from schema discovery and are validated
// identifiers.
package events

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/schema"
)

// SQLTimeLayout is the MySQL DATETIME literal layout.
const SQLTimeLayout = "2006-01-02 15:04:05"

// Query is a parameterized statement plus the metadata the dispatcher
// needs about the rows it returns.
type Query struct {
	SQL        string
	Args       []any
	DateColumn string // column consulted when a row carries no explicit date
	Recurring  bool   // rows repeat yearly; ledger keys carry the year
}

// Window fixes the moment a run evaluates rules at.
type Window struct {
	Now          time.Time     // tenant wall clock
	Lookback     time.Duration // recency window for time-based events
	ReminderLead time.Duration // how far ahead appointment reminders look
	Limit        uint64        // cap on returned rows; 0 means no cap

	// DateColumn resolves the recency column of invoice and appointment
	// tables. "" means the table has none and recency filtering is skipped.
	// A nil func assumes "updatetime".
	DateColumn func(table string) string
}

func (w Window) since() string { return w.Now.Add(-w.Lookback).Format(SQLTimeLayout) }

func (w Window) dateColumn(table string) string {
	if w.DateColumn == nil {
		return "updatetime"
	}
	return w.DateColumn(table)
}

var sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const (
	clientJoin    = "%s c ON t.client = c.id"
	clientIDJoin  = "%s c ON c.id = t.client_id"
	multiClientJn = "%s c ON c.id = SUBSTRING_INDEX(t.client_id, ',', -1)"
)

// Build returns the query for kind, or ok=false when the kind has none.
func Build(kind domain.EventKind, tables schema.TableMap, w Window) (Query, bool) {
	var (
		q         sq.SelectBuilder
		dateCol   = "updatetime"
		recurring bool
	)
	since := w.since()

	switch kind {
	case domain.EventBirthday, domain.EventAnniversary:
		col := "dob"
		if kind == domain.EventAnniversary {
			col = "aniversary"
		}
		q = sb.Select("*", "id AS client_id", "cont AS phone").
			From(tables.Client).
			Where("DATE_FORMAT("+col+", '%m-%d') = ?", w.Now.Format("01-02"))
		recurring = true

	case domain.EventEnquiry:
		q = sb.Select("*").From(tables.Enquiry).Where(sq.GtOrEq{"date": since})
		dateCol = "date"

	case domain.EventPendingPayment:
		q, dateCol = recent(joined(tables.Invoice, clientJoin, tables.Client), tables.Invoice, w, since)
		q = q.Where(sq.Gt{"t.pending": 0})

	case domain.EventAppointmentReminder:
		at := w.Now.Add(w.ReminderLead)
		q = joined(tables.Appointment, clientJoin, tables.Client).
			Where(sq.Eq{"t.appdate": at.Format("2006-01-02")}).
			Where(sq.Like{"t.itime": at.Format("15:04") + "%"})
		dateCol = "appdate"

	case domain.EventAppointmentCancel:
		q, dateCol = recent(joined(tables.Appointment, clientJoin, tables.Client), tables.Appointment, w, since)
		q = q.Where(sq.Eq{"t.status": []string{"Cancel", "Deleted"}})

	case domain.EventAppointmentReschedule:
		q, dateCol = recent(joined(tables.Appointment, clientJoin, tables.Client), tables.Appointment, w, since)
		q = q.Where(sq.Eq{"t.status": "Rescheduled"})

	case domain.EventNewAppointment:
		q, dateCol = recent(joined(tables.Appointment, clientJoin, tables.Client), tables.Appointment, w, since)
		q = q.Where(sq.Eq{"t.status": []string{"Pending", "Confirmed"}})

	case domain.EventReward:
		q = joined(tables.Reward, multiClientJn, tables.Client).
			Where(sq.GtOrEq{"t.datetime": since}).
			Where(sq.Eq{"t.point_type": 1})
		dateCol = "datetime"

	case domain.EventMembership:
		q = joined(tables.Membership, multiClientJn, tables.Client).
			Where(sq.GtOrEq{"t.time_update": since})
		dateCol = "time_update"

	case domain.EventServiceReminder:
		q = joined(tables.ServiceReminder, clientIDJoin, tables.Client).
			Where(sq.GtOrEq{"t.reminder_date": since})
		dateCol = "reminder_date"

	case domain.EventNewBill:
		q, dateCol = recent(joined(tables.Invoice, clientJoin, tables.Client), tables.Invoice, w, since)

	default:
		return Query{}, false
	}

	if w.Limit > 0 {
		q = q.Limit(w.Limit)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Query{}, false
	}
	return Query{SQL: sqlStr, Args: args, DateColumn: dateCol, Recurring: recurring}, true
}

// BuildLatest returns a query for the single most recent row of the table
// kind reads from. It backs test sends, which need a realistic sample.
func BuildLatest(kind domain.EventKind, tables schema.TableMap) (Query, bool) {
	var q sq.SelectBuilder
	dateCol := "updatetime"

	switch kind {
	case domain.EventBirthday, domain.EventAnniversary:
		q = sb.Select("*", "id AS client_id", "cont AS phone").From(tables.Client).OrderBy("id DESC")
	case domain.EventEnquiry:
		q = sb.Select("*").From(tables.Enquiry).OrderBy("id DESC")
		dateCol = "date"
	case domain.EventPendingPayment, domain.EventNewBill:
		q = joined(tables.Invoice, clientJoin, tables.Client).OrderBy("t.id DESC")
	case domain.EventAppointmentReminder, domain.EventAppointmentCancel,
		domain.EventAppointmentReschedule, domain.EventNewAppointment:
		q = joined(tables.Appointment, clientJoin, tables.Client).OrderBy("t.id DESC")
		if kind == domain.EventAppointmentReminder {
			dateCol = "appdate"
		}
	case domain.EventReward:
		q = joined(tables.Reward, multiClientJn, tables.Client).OrderBy("t.id DESC")
		dateCol = "datetime"
	case domain.EventMembership:
		q = joined(tables.Membership, multiClientJn, tables.Client).OrderBy("t.id DESC")
		dateCol = "time_update"
	case domain.EventServiceReminder:
		q = joined(tables.ServiceReminder, clientIDJoin, tables.Client).OrderBy("t.id DESC")
		dateCol = "reminder_date"
	default:
		return Query{}, false
	}

	sqlStr, args, err := q.Limit(1).ToSql()
	if err != nil {
		return Query{}, false
	}
	return Query{SQL: sqlStr, Args: args, DateColumn: dateCol, Recurring: kind.Recurring()}, true
}

// joined selects event rows aliased "t" with the client's name and phone.
func joined(table, joinFmt, client string) sq.SelectBuilder {
	return sb.Select("t.*", "c.name", "c.cont AS phone").
		From(table + " t").
		LeftJoin(fmt.Sprintf(joinFmt, client))
}

// recent filters on the table's resolved recency column. Without one the
// filter is dropped and the newest rows are taken instead.
func recent(q sq.SelectBuilder, table string, w Window, since string) (sq.SelectBuilder, string) {
	col := w.dateColumn(table)
	if col == "" || !schema.ValidIdentifier(col) {
		return q.OrderBy("t.id DESC"), ""
	}
	return q.Where(sq.GtOrEq{"t." + col: since}), col
}
