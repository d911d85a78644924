package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/events"
	"github.com/diljot111/easy-software/internal/mapping"
	"github.com/diljot111/easy-software/internal/remotedb"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/schema"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

// TestResult describes a one-off test send.
type TestResult struct {
	RuleID     uint     `json:"rule_id"`
	To         string   `json:"to"`
	Template   string   `json:"template"`
	Params     []string `json:"params"`
	MessageID  string   `json:"message_id,omitempty"`
	UsedSample bool     `json:"used_sample"`
}

// sampleRow stands in for real data when the tenant's table is empty or
// unreachable.
func sampleRow() remotedb.Row {
	return remotedb.Row{
		"id":        int64(0),
		"branch_id": int64(0),
		"name":      "Test User",
		"phone":     mapping.DefaultBusinessPhone,
		"itime":     mapping.DefaultTime,
		"points":    "50",
		"details":   "Service / Enquiry",
		"total":     "500",
		"pending":   "500",
	}
}

// TestRule sends the rule's template once, built from the most recent
// source row. It never reads or writes the ledger. When to is empty the
// row's own phone number is used.
func (s *AutomationService) TestRule(ctx context.Context, ruleID uint, to string) (TestResult, error) {
	ctx, span := s.tracer().Start(ctx, "TestRule",
		trace.WithAttributes(attribute.Int64("rule.id", int64(ruleID))))
	defer span.End()

	out := TestResult{RuleID: ruleID}
	rule, err := repo.GetRule(ctx, s.DB, ruleID)
	if err != nil {
		if repo.IsNotFound(err) {
			return out, ErrRuleNotFound
		}
		return out, err
	}
	tenant, err := repo.GetTenant(ctx, s.DB, rule.TenantID)
	if err != nil {
		if repo.IsNotFound(err) {
			return out, ErrTenantNotFound
		}
		return out, err
	}
	if !tenant.HasSender() {
		return out, ErrMissingCredentials
	}

	kind := rule.Kind()
	row, dateCol, sample := s.latestRow(ctx, tenant, kind)
	out.UsedSample = sample

	msg, err := s.compose(ctx, tenant, *rule, kind, row, dateCol)
	if err != nil {
		return out, err
	}
	if to != "" {
		msg.To = to
	}
	out.To = whatsapp.NormalizePhone(msg.To)
	out.Template = msg.Name
	for _, c := range msg.Components {
		for _, p := range c.Parameters {
			out.Params = append(out.Params, p.Text)
		}
	}
	if out.To == "" {
		return out, ErrMissingRecipient
	}

	sent, err := s.Sender.Send(ctx, credentials(tenant), msg)
	if err != nil {
		return out, fmt.Errorf("test send: %w", err)
	}
	out.MessageID = sent.MessageID
	return out, nil
}

// latestRow fetches the newest row for kind, or the sample row when none
// can be read.
func (s *AutomationService) latestRow(ctx context.Context, tenant *domain.Tenant, kind domain.EventKind) (remotedb.Row, string, bool) {
	logger := log.With().Uint("tenant_id", tenant.ID).Logger()
	if !tenant.HasDatabase() {
		return sampleRow(), "", true
	}
	conn, err := s.Dialer.Dial(ctx, remotedb.Params{
		Host:     tenant.DBHost,
		Port:     tenant.DBPort,
		User:     tenant.DBUser,
		Password: tenant.DBPassword,
		Database: tenant.DBName,
	})
	if err != nil {
		logger.Warn().Str("reason", remotedb.Describe(err)).Msg("test send: database unreachable; using sample data")
		return sampleRow(), "", true
	}
	defer conn.Close()

	q, ok := events.BuildLatest(kind, schema.ResolveTables(ctx, conn, tenant.DBName))
	if !ok {
		return sampleRow(), "", true
	}
	rows, err := s.query(ctx, conn, q)
	if err != nil || len(rows) == 0 {
		if err != nil {
			logger.Warn().Err(err).Msg("test send: query failed; using sample data")
		}
		return sampleRow(), "", true
	}
	return rows[0], q.DateColumn, false
}
