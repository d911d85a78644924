// Package schema discovers which physical tables and columns a tenant's
// legacy database uses. Installations differ: invoice tables carry a branch
// suffix, some call the client table "customer", and the recency column
// name varies by software version.
package schema

import (
	"context"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"github.com/diljot111/easy-software/internal/remotedb"
)

// TableMap maps logical roles to physical table names.
type TableMap struct {
	Invoice         string `json:"invoice"`
	Appointment     string `json:"appointment"`
	Client          string `json:"client"`
	Enquiry         string `json:"enquiry"`
	Reward          string `json:"reward"`
	Membership      string `json:"membership"`
	ServiceReminder string `json:"service_reminder"`
}

// DefaultTables is used for every role that discovery cannot resolve.
var DefaultTables = TableMap{
	Invoice:         "invoice_1",
	Appointment:     "app_invoice_1",
	Client:          "client",
	Enquiry:         "enquiry",
	Reward:          "customer_reward_points",
	Membership:      "membership_discount_history",
	ServiceReminder: "service_reminder",
}

// DateColumnPriority is the preference order for recency columns.
var DateColumnPriority = []string{"updatetime", "updated_at", "entry_date", "created_at", "doa"}

var (
	sb      = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	identRe = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)
)

// ValidIdentifier reports whether name can be interpolated as a bare SQL
// table or column name.
func ValidIdentifier(name string) bool { return identRe.MatchString(name) }

// ResolveTables lists the schema's tables and picks the first match per
// role. It never fails: lookup errors fall back to DefaultTables.
func ResolveTables(ctx context.Context, conn remotedb.Conn, database string) TableMap {
	out := DefaultTables

	query, args, err := sb.Select("TABLE_NAME").
		From("INFORMATION_SCHEMA.TABLES").
		Where(sq.Eq{"TABLE_SCHEMA": database}).
		ToSql()
	if err != nil {
		return out
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		log.Warn().Err(err).Str("database", database).Msg("table discovery failed; using defaults")
		return out
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if n, ok := r.First("TABLE_NAME", "table_name"); ok && ValidIdentifier(n) {
			names = append(names, n)
		}
	}

	pick := func(match func(string) bool, def string) string {
		for _, n := range names {
			if match(n) {
				return n
			}
		}
		return def
	}
	equals := func(want ...string) func(string) bool {
		return func(n string) bool {
			for _, w := range want {
				if n == w {
					return true
				}
			}
			return false
		}
	}
	prefix := func(p string) func(string) bool {
		return func(n string) bool { return strings.HasPrefix(n, p) }
	}

	out.Invoice = pick(prefix("invoice_"), DefaultTables.Invoice)
	out.Appointment = pick(prefix("app_invoice_"), DefaultTables.Appointment)
	out.Client = pick(equals("client", "customer"), DefaultTables.Client)
	out.Enquiry = pick(equals("enquiry"), DefaultTables.Enquiry)
	out.Reward = pick(equals("customer_reward_points"), DefaultTables.Reward)
	out.Membership = pick(equals("membership_discount_history"), DefaultTables.Membership)
	out.ServiceReminder = pick(equals("service_reminder"), DefaultTables.ServiceReminder)
	return out
}

// ResolveDateColumn returns the table's preferred recency column, or ""
// when none of DateColumnPriority exists (or the lookup fails), in which
// case the caller skips recency filtering for that table.
func ResolveDateColumn(ctx context.Context, conn remotedb.Conn, table string) string {
	if !ValidIdentifier(table) {
		return ""
	}
	query, args, err := sb.Select("COLUMN_NAME").
		From("INFORMATION_SCHEMA.COLUMNS").
		Where("TABLE_SCHEMA = DATABASE()").
		Where(sq.Eq{"TABLE_NAME": table}).
		ToSql()
	if err != nil {
		return ""
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		log.Warn().Err(err).Str("table", table).Msg("column discovery failed")
		return ""
	}

	present := make(map[string]bool, len(rows))
	for _, r := range rows {
		if c, ok := r.First("COLUMN_NAME", "column_name"); ok {
			present[strings.ToLower(c)] = true
		}
	}
	for _, c := range DateColumnPriority {
		if present[c] {
			return c
		}
	}
	return ""
}
