package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailwatch/core/logger"
	"mailwatch/core/secrets"
	"mailwatch/feature/axigen"
	"mailwatch/feature/registry"
)

// ReportSink archives a finished run report.
type ReportSink interface {
	PutReport(ctx context.Context, name string, payload []byte) error
}

// Runner drives one full pass over every monitored server, strictly one
// server at a time. Failures inside one server's pass are logged and
// contained; the run always moves on to the next server.
type Runner struct {
	Store  *registry.Store
	Box    *secrets.Box
	Config Config
	Logger *zap.Logger

	// Sink, when set, receives the serialized run report after the pass.
	Sink ReportSink

	// Collaborator seams, replaceable in tests. Nil selects the real
	// implementations.
	Inventory func(ctx context.Context, t axigen.Target) ([]axigen.DomainInfo, error)
	Usage     func(ctx context.Context, t axigen.Target) ([]axigen.UsageRow, error)
	DialerFor func(t axigen.Target) Dialer
}

// Run performs one whole pass and writes exactly one snapshot at the end.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.NewString()
	report := &RunReport{RunID: runID, StartedAt: time.Now().UTC()}
	log := logger.WithRun(r.Logger, runID)

	servers, err := r.Store.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	log.Info("sync run started", zap.Int("servers", len(servers)))

	for _, srv := range servers {
		report.Servers = append(report.Servers, r.runServer(ctx, log, srv))
	}

	if _, err := r.Store.WriteSnapshot(ctx, "sync"); err != nil {
		log.Error("failed to write run snapshot", zap.Error(err))
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("sync run finished",
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	if r.Sink != nil {
		if err := r.archive(ctx, report); err != nil {
			log.Warn("failed to archive run report", zap.Error(err))
		}
	}

	return report, nil
}

func (r *Runner) runServer(ctx context.Context, log *zap.Logger, srv registry.Server) ServerReport {
	started := time.Now()
	sr := ServerReport{Server: srv.Name, StartedAt: started.UTC()}
	slog := logger.WithServer(log, srv.Name)

	fail := func(msg string, err error) ServerReport {
		slog.Error(msg, zap.Error(err))
		sr.Error = fmt.Sprintf("%s: %v", msg, err)
		sr.Duration = time.Since(started).String()
		return sr
	}

	password, err := r.Box.Open(srv.EncryptedPassword)
	if err != nil {
		return fail("failed to unseal server password", err)
	}

	target := axigen.Target{
		Name:         srv.Name,
		Host:         srv.Hostname,
		CLIPort:      srv.CLIPort,
		WebadminPort: srv.WebadminPort,
		Username:     srv.Username,
		Password:     password,
		Timeout:      time.Duration(r.Config.CLITimeoutSeconds) * time.Second,
	}

	inventory, err := r.fetchInventory(ctx, target)
	if err != nil {
		return fail("failed to fetch domain inventory", err)
	}

	observed := make([]registry.ObservedDomain, 0, len(inventory))
	for _, d := range inventory {
		observed = append(observed, registry.ObservedDomain{Name: d.Name, Status: d.Status})
	}

	rec, err := r.Store.ReconcileDomains(ctx, srv.ID, observed)
	if err != nil {
		return fail("failed to reconcile domains", err)
	}
	sr.EventsEmitted = rec.EventsEmitted

	if _, err := r.Store.DeleteMissingDomains(ctx, srv.ID, rec.Seen); err != nil {
		return fail("failed to delete vanished domains", err)
	}
	if purged, err := r.Store.DeleteAccountsForDisabledDomains(ctx, rec); err != nil {
		return fail("failed to purge disabled-domain accounts", err)
	} else if purged > 0 {
		slog.Info("purged accounts of disabled domains", zap.Int64("count", purged))
	}

	usageTarget := target
	usageTarget.Timeout = time.Duration(r.Config.UsageTimeoutSeconds) * time.Second
	rows, err := r.fetchUsage(ctx, usageTarget)
	if err != nil {
		// no usage source, no account work; the inventory reconciliation
		// above still counts
		slog.Warn("usage snapshot unavailable, skipping account sync", zap.Error(err))
		sr.UsageSkipped = true
		sr.Duration = time.Since(started).String()
		return sr
	}

	plan := BuildPlan(rows)
	domains := r.processedSet(plan, rec)
	sr.Domains = len(domains)

	dialer := r.dialerFor(target)
	writer := NewWriter(r.Store, rec, r.Config.FlushThreshold, slog)
	dispatcher := &Dispatcher{
		Workers: r.Config.Workers,
		Logger:  slog,
		Process: func(ctx context.Context, domain string) DomainResult {
			return ProcessDomain(ctx, dialer, domain, plan.AccountsByDomain[domain], plan.UsageByEmailKB)
		},
	}

	tally := dispatcher.Run(ctx, domains, func(result DomainResult) {
		slog.Debug("domain pass finished",
			zap.String("domain", result.Domain),
			zap.String("status", result.Status),
			zap.Int("accounts", len(result.Accounts)),
			zap.Int("errors", len(result.Errors)))
		writer.Consume(ctx, result)
	})
	if err := writer.Finish(ctx); err != nil {
		sr.Error = fmt.Sprintf("mirror writes degraded: %v", err)
	}

	sr.Success = tally.Success
	sr.Partial = tally.Partial
	sr.Failed = tally.Failed
	sr.Duration = time.Since(started).String()

	slog.Info("server pass finished",
		zap.Int("domains", tally.TotalDomains),
		zap.Int("success", tally.Success),
		zap.Int("partial", tally.Partial),
		zap.Int("failed", tally.Failed),
		zap.Duration("duration", tally.Duration))

	return sr
}

// processedSet intersects the usage-visible domains with the mirrored
// inventory, dropping disabled domains — they are invisible to the usage
// source, so any rows for them would be bogus.
func (r *Runner) processedSet(plan Plan, rec *registry.DomainReconciliation) []string {
	out := make([]string, 0, len(plan.Domains))
	for _, domain := range plan.Domains {
		if _, known := rec.IDByName[domain]; !known {
			continue
		}
		if registry.IsDomainDisabled(rec.StatusByName[domain]) {
			continue
		}
		out = append(out, domain)
	}
	return out
}

func (r *Runner) archive(ctx context.Context, report *RunReport) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}
	return r.Sink.PutReport(ctx, report.RunID, payload)
}

func (r *Runner) fetchInventory(ctx context.Context, t axigen.Target) ([]axigen.DomainInfo, error) {
	if r.Inventory != nil {
		return r.Inventory(ctx, t)
	}
	return axigen.FetchInventory(ctx, t)
}

func (r *Runner) fetchUsage(ctx context.Context, t axigen.Target) ([]axigen.UsageRow, error) {
	if r.Usage != nil {
		return r.Usage(ctx, t)
	}
	return axigen.FetchUsageSnapshot(ctx, t)
}

func (r *Runner) dialerFor(t axigen.Target) Dialer {
	if r.DialerFor != nil {
		return r.DialerFor(t)
	}
	return DialerFunc(func(ctx context.Context) (Session, error) {
		return axigen.OpenSession(ctx, t)
	})
}
