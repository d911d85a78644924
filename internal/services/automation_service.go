// Package services – AutomationService
//
// AutomationService runs a tenant's automation rules against the tenant's
// own MySQL database and sends the resulting WhatsApp notifications.
//
// A run moves through these states:
//
//	FETCHING        load tenant and active rules
//	QUERYING_RULES  one connection; schema lookup; one query per rule
//	JOB_QUEUE_BUILT connection closed; unsent rows queued
//	DISPATCHING     paced, serial sends; ledger row per success
//	DONE
//
// A connection failure ends the run in CONNECTION_ERROR before anything is
// dispatched. Rule query errors skip the rule and job errors skip the job.
//
// Observability: runs and jobs are traced with OpenTelemetry and counted in
// Prometheus (see observability/metrics.go).
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/config"
	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/events"
	"github.com/diljot111/easy-software/internal/mapping"
	"github.com/diljot111/easy-software/internal/observability"
	"github.com/diljot111/easy-software/internal/remotedb"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/runlock"
	"github.com/diljot111/easy-software/internal/schema"
	"github.com/diljot111/easy-software/internal/throttle"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

// Sender delivers template messages.
type Sender interface {
	Send(ctx context.Context, creds whatsapp.Credentials, msg whatsapp.TemplateMessage) (whatsapp.SendResult, error)
}

// LinkShortener turns an invoice into a (possibly shortened) viewer link.
// Implementations never fail; they fall back to the long URL.
type LinkShortener interface {
	Shorten(ctx context.Context, invoiceID, branchID int64, baseURL string) string
}

// RunResult summarizes one tenant run.
type RunResult struct {
	TenantID uint   `json:"tenant_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Queued   int    `json:"queued"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
}

// PendingJob is one unsent event row waiting for dispatch.
type PendingJob struct {
	Rule       domain.AutomationRule
	Kind       domain.EventKind
	Row        remotedb.Row
	ExternalID string
	DateColumn string
}

// AutomationService coordinates detection and dispatch.
type AutomationService struct {
	DB        *gorm.DB
	Dialer    remotedb.Dialer
	Sender    Sender
	Shortener LinkShortener
	Templates *TemplateCache
	Locker    runlock.Locker
	Cfg       config.AutomationConfig

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *AutomationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AutomationService) tracer() trace.Tracer {
	return otel.Tracer("services/AutomationService")
}

// RunTenant evaluates every active rule of the tenant. A tenant that does
// not exist, has no active rules or yields no new rows is a success with no
// side effects. The returned error is non-nil exactly when Success is false.
func (s *AutomationService) RunTenant(ctx context.Context, tenantID uint) (RunResult, error) {
	ctx, span := s.tracer().Start(ctx, "RunTenant",
		trace.WithAttributes(attribute.Int64("tenant.id", int64(tenantID))))
	defer span.End()

	res, err := s.run(ctx, tenantID, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// RunRule is the manual "run now" for a single rule, active or not.
func (s *AutomationService) RunRule(ctx context.Context, ruleID uint) (RunResult, error) {
	ctx, span := s.tracer().Start(ctx, "RunRule",
		trace.WithAttributes(attribute.Int64("rule.id", int64(ruleID))))
	defer span.End()

	rule, err := repo.GetRule(ctx, s.DB, ruleID)
	if err != nil {
		if repo.IsNotFound(err) {
			return RunResult{Error: ErrRuleNotFound.Error()}, ErrRuleNotFound
		}
		return RunResult{Error: err.Error()}, err
	}
	span.SetAttributes(attribute.Int64("tenant.id", int64(rule.TenantID)))
	return s.run(ctx, rule.TenantID, rule)
}

// RunAll runs every tenant with a database host, one after another.
// A failing tenant does not stop the sweep; cancellation of ctx does.
func (s *AutomationService) RunAll(ctx context.Context) ([]RunResult, error) {
	ctx, span := s.tracer().Start(ctx, "RunAll")
	defer span.End()

	ids, err := repo.ListSweepTenants(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	span.SetAttributes(attribute.Int("tenants", len(ids)))
	log.Info().Int("tenants", len(ids)).Msg("sweep started")

	out := make([]RunResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.RunTenant(ctx, id)
		if err != nil {
			log.Warn().Err(err).Uint("tenant_id", id).Msg("tenant run failed")
		}
		out = append(out, res)
	}
	log.Info().Int("tenants", len(ids)).Msg("sweep finished")
	return out, nil
}

// run executes one tenant run. A non-nil only restricts the run to that rule.
func (s *AutomationService) run(ctx context.Context, tenantID uint, only *domain.AutomationRule) (res RunResult, err error) {
	start := time.Now()
	res.TenantID = tenantID
	outcome := observability.OutcomeSuccess
	defer func() {
		if err != nil && outcome == observability.OutcomeSuccess {
			outcome = observability.OutcomeFailed
		}
		observability.ObserveRun(outcome, time.Since(start))
	}()
	fail := func(e error) (RunResult, error) {
		res.Success = false
		res.Error = e.Error()
		return res, e
	}
	logger := log.With().Uint("tenant_id", tenantID).Logger()

	// The lease must outlive the gap between two refreshes.
	leaseTTL := max(s.Cfg.RunLockTTL, 2*s.Cfg.SendInterval)
	var lease runlock.Lease
	if s.Locker != nil {
		l, ok, lerr := s.Locker.Acquire(ctx, "tenant:"+strconv.FormatUint(uint64(tenantID), 10), leaseTTL)
		switch {
		case lerr != nil:
			// The ledger's unique index still prevents double sends.
			logger.Warn().Err(lerr).Msg("run lock unavailable; continuing unlocked")
		case !ok:
			outcome = observability.OutcomeBusy
			return fail(ErrRunInProgress)
		default:
			lease = l
			defer lease.Release()
		}
	}

	// FETCHING
	tenant, err := repo.GetTenantWithActiveRules(ctx, s.DB, tenantID)
	if err != nil {
		if repo.IsNotFound(err) {
			logger.Info().Msg("tenant not found; nothing to do")
			res.Success = true
			return res, nil
		}
		return fail(fmt.Errorf("load tenant: %w", err))
	}
	rules := tenant.Rules
	if only != nil {
		rules = []domain.AutomationRule{*only}
	}
	if len(rules) == 0 {
		res.Success = true
		return res, nil
	}
	if !tenant.HasDatabase() {
		return fail(ErrNoDatabase)
	}

	// QUERYING_RULES
	jobs, skipped, err := s.collect(ctx, tenant, rules)
	res.Skipped = skipped
	if err != nil {
		outcome = observability.OutcomeConnection
		logger.Error().Err(err).Msg("tenant database unreachable")
		return fail(err)
	}

	// JOB_QUEUE_BUILT
	res.Queued = len(jobs)
	observability.AddJobs("queued", len(jobs))
	observability.AddJobs("skipped", skipped)
	if len(jobs) == 0 {
		res.Success = true
		return res, nil
	}
	if !tenant.HasSender() {
		return fail(ErrMissingCredentials)
	}
	logger.Info().Int("jobs", len(jobs)).Msg("dispatching")

	// DISPATCHING
	pacer := throttle.NewPacer(s.Cfg.SendInterval)
	late := 0
	report, err := pacer.Run(ctx, len(jobs), func(ctx context.Context, i int) error {
		// Refresh before every send so a long queue never outlives its lock.
		if lease != nil && leaseTTL > 0 {
			if lerr := lease.Extend(ctx, leaseTTL); errors.Is(lerr, runlock.ErrLost) {
				return fmt.Errorf("%w: %w", throttle.ErrStop, ErrLockLost)
			} else if lerr != nil {
				logger.Warn().Err(lerr).Msg("run lock refresh failed")
			}
		}
		err := s.dispatch(ctx, tenant, jobs[i])
		if errors.Is(err, errAlreadySent) {
			late++
			return nil
		}
		return err
	})
	res.Sent = report.Done - late
	res.Failed = report.Failed
	res.Skipped += late
	observability.AddJobs("sent", res.Sent)
	observability.AddJobs("failed", report.Failed)
	observability.AddJobs("skipped", late)
	if errors.Is(err, ErrLockLost) {
		outcome = observability.OutcomeBusy
		logger.Warn().Int("left", len(jobs)-report.Done-report.Failed).Msg("run lock lost; queue abandoned")
		return fail(ErrLockLost)
	}
	if err != nil {
		return fail(fmt.Errorf("dispatch interrupted: %w", err))
	}

	// DONE
	res.Success = true
	logger.Info().Int("sent", res.Sent).Int("failed", res.Failed).Msg("run finished")
	return res, nil
}

// collect opens the tenant connection, runs each rule's query and returns
// the rows not yet in the ledger. The connection is closed on return.
func (s *AutomationService) collect(ctx context.Context, tenant *domain.Tenant, rules []domain.AutomationRule) ([]PendingJob, int, error) {
	ctx, span := s.tracer().Start(ctx, "CollectJobs")
	defer span.End()

	conn, err := s.Dialer.Dial(ctx, remotedb.Params{
		Host:     tenant.DBHost,
		Port:     tenant.DBPort,
		User:     tenant.DBUser,
		Password: tenant.DBPassword,
		Database: tenant.DBName,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrConnection, remotedb.Describe(err))
	}
	defer conn.Close()

	loc := s.Cfg.Location()
	now := s.now().In(loc)
	tables := schema.ResolveTables(ctx, conn, tenant.DBName)

	dateCols := map[string]string{}
	win := events.Window{
		Now:          now,
		Lookback:     s.Cfg.Lookback,
		ReminderLead: s.Cfg.ReminderLead,
		Limit:        s.Cfg.RowLimit,
		DateColumn: func(table string) string {
			if col, ok := dateCols[table]; ok {
				return col
			}
			col := schema.ResolveDateColumn(ctx, conn, table)
			dateCols[table] = col
			return col
		},
	}

	var (
		jobs    []PendingJob
		skipped int
		seen    = map[string]struct{}{}
	)
	for _, rule := range rules {
		rlog := log.With().Uint("tenant_id", tenant.ID).Uint("rule_id", rule.ID).Logger()
		kind := rule.Kind()
		q, ok := events.Build(kind, tables, win)
		if !ok {
			rlog.Warn().Str("event_type", rule.EventType).Msg("unknown event type; rule skipped")
			continue
		}

		rows, err := s.query(ctx, conn, q)
		if err != nil {
			rlog.Warn().Err(err).Msg("rule query failed; rule skipped")
			continue
		}

		for _, row := range rows {
			rowID, ok := row.String("id")
			if !ok {
				skipped++
				continue
			}
			extID := repo.ExternalID(rowID, q.Recurring, now.Year())
			key := strconv.FormatUint(uint64(rule.ID), 10) + "/" + extID
			if _, dup := seen[key]; dup {
				skipped++
				continue
			}
			seen[key] = struct{}{}

			sent, err := repo.HasBeenSent(ctx, s.DB, tenant.ID, rule.ID, extID)
			if err != nil {
				rlog.Warn().Err(err).Str("external_id", extID).Msg("ledger lookup failed; row skipped")
				skipped++
				continue
			}
			if sent {
				skipped++
				continue
			}
			if s.Cfg.MaxAttempts > 0 {
				n, err := repo.Attempts(ctx, s.DB, tenant.ID, rule.ID, extID)
				if err == nil && n >= s.Cfg.MaxAttempts {
					skipped++
					continue
				}
			}
			jobs = append(jobs, PendingJob{Rule: rule, Kind: kind, Row: row, ExternalID: extID, DateColumn: q.DateColumn})
		}
	}
	span.SetAttributes(attribute.Int("jobs", len(jobs)))
	return jobs, skipped, nil
}

func (s *AutomationService) query(ctx context.Context, conn remotedb.Conn, q events.Query) ([]remotedb.Row, error) {
	if s.Cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Cfg.QueryTimeout)
		defer cancel()
	}
	return conn.Query(ctx, q.SQL, q.Args...)
}

// errAlreadySent marks a job whose event reached the ledger after the queue
// was built, for example from an overlapping run.
var errAlreadySent = errors.New("event already in ledger")

// dispatch sends one job and records the outcome. Failures bump the
// attempt counter and leave no ledger row.
func (s *AutomationService) dispatch(ctx context.Context, tenant *domain.Tenant, job PendingJob) (err error) {
	ctx, span := s.tracer().Start(ctx, "Dispatch", trace.WithAttributes(
		attribute.Int64("tenant.id", int64(tenant.ID)),
		attribute.Int64("rule.id", int64(job.Rule.ID)),
		attribute.String("external.id", job.ExternalID),
	))
	defer span.End()
	logger := log.With().
		Uint("tenant_id", tenant.ID).
		Uint("rule_id", job.Rule.ID).
		Str("external_id", job.ExternalID).
		Logger()

	sent, err := repo.HasBeenSent(ctx, s.DB, tenant.ID, job.Rule.ID, job.ExternalID)
	if err != nil {
		return fmt.Errorf("ledger lookup: %w", err)
	}
	if sent {
		logger.Info().Msg("already sent; skipped")
		return errAlreadySent
	}

	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Msg("dispatch failed")
		if rerr := repo.RecordFailure(ctx, s.DB, tenant.ID, job.Rule.ID, job.ExternalID, err.Error()); rerr != nil {
			logger.Error().Err(rerr).Msg("record dispatch failure")
		}
	}()

	msg, err := s.compose(ctx, tenant, job.Rule, job.Kind, job.Row, job.DateColumn)
	if err != nil {
		return err
	}
	if whatsapp.NormalizePhone(msg.To) == "" {
		return ErrMissingRecipient
	}

	out, err := s.Sender.Send(ctx, credentials(tenant), msg)
	if err != nil {
		return err
	}

	if _, err := repo.RecordSent(ctx, s.DB, tenant.ID, job.Rule.ID, job.ExternalID, domain.StatusSent, out.MessageID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			logger.Info().Msg("ledger already holds this event")
			return nil
		}
		// The message went out; only the bookkeeping failed.
		logger.Error().Err(err).Str("message_id", out.MessageID).Msg("ledger write failed after send")
		return nil
	}
	logger.Info().Str("message_id", out.MessageID).Str("template", msg.Name).Msg("sent")
	return nil
}

// compose builds the template message for one event row.
func (s *AutomationService) compose(ctx context.Context, tenant *domain.Tenant, rule domain.AutomationRule, kind domain.EventKind, row remotedb.Row, dateCol string) (whatsapp.TemplateMessage, error) {
	loc := s.Cfg.Location()

	link := ""
	if s.Shortener != nil {
		link = s.Shortener.Shorten(ctx, row.Int("id"), row.Int("branch_id"), tenant.BaseURL)
	}
	rich := mapping.NewRichData(row, s.business(tenant), dateCol, link, s.now(), loc)

	tpl, err := s.Templates.Get(ctx, s.DB, tenant.ID, rule.TemplateName)
	if err != nil {
		return whatsapp.TemplateMessage{}, fmt.Errorf("load template: %w", err)
	}
	values := mapping.MapVariables(tpl, kind, rich)

	header := 0
	lang := s.Cfg.Language
	if tpl != nil {
		header = tpl.HeaderVariables
		if tpl.Language != "" {
			lang = tpl.Language
		}
	}
	return whatsapp.TemplateMessage{
		To:         rich.Client.Phone,
		Name:       rule.TemplateName,
		Language:   lang,
		Components: whatsapp.Components(values, header),
	}, nil
}

// business returns the sender identity, replacing names that are really
// URLs with the configured default.
func (s *AutomationService) business(t *domain.Tenant) mapping.Business {
	name := strings.TrimSpace(t.BusinessName)
	low := strings.ToLower(name)
	if name == "" || strings.Contains(low, "http") || strings.HasSuffix(low, ".com") || strings.HasSuffix(low, ".in") {
		name = s.Cfg.BusinessDefault
	}
	return mapping.Business{Name: name, Phone: t.BusinessPhone}
}

func credentials(t *domain.Tenant) whatsapp.Credentials {
	return whatsapp.Credentials{PhoneNumberID: t.PhoneNumberID, Token: t.MetaToken, WABAID: t.WABAID}
}
