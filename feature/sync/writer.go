package sync

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailwatch/feature/registry"
)

// Writer is the single consumer of the result stream. It is the only thing
// that mutates the mirror during a server pass.
type Writer struct {
	store          *registry.Store
	rec            *registry.DomainReconciliation
	logger         *zap.Logger
	flushThreshold int

	buffer    []registry.Account
	seen      map[uuid.UUID][]string
	processed []uuid.UUID
	firstErr  error
}

// NewWriter creates a Writer bound to one server's reconciled domain set.
func NewWriter(store *registry.Store, rec *registry.DomainReconciliation, flushThreshold int, logger *zap.Logger) *Writer {
	if flushThreshold <= 0 {
		flushThreshold = 2000
	}
	return &Writer{
		store:          store,
		rec:            rec,
		logger:         logger,
		flushThreshold: flushThreshold,
		seen:           make(map[uuid.UUID][]string),
	}
}

// Consume applies one DomainResult: the domain's attempt metadata is updated
// unconditionally, account observations are buffered for batched upserts, and
// observed local parts are tracked for the deletion pass in Finish.
func (w *Writer) Consume(ctx context.Context, result DomainResult) {
	domainID, known := w.rec.IDByName[strings.ToLower(result.Domain)]
	if !known {
		w.logger.Warn("result for unmirrored domain dropped",
			zap.String("domain", result.Domain))
		return
	}

	w.processed = append(w.processed, domainID)
	if _, tracked := w.seen[domainID]; !tracked {
		w.seen[domainID] = nil
	}

	// "last attempted", not "last successful"
	if err := w.store.SetDomainObserved(ctx, domainID, len(result.Accounts)); err != nil {
		w.fail(err, result.Domain)
	}

	now := time.Now().UTC()
	for _, acct := range result.Accounts {
		email := strings.ToLower(acct.Email)
		localPart := strings.ToLower(acct.LocalPart)
		w.seen[domainID] = append(w.seen[domainID], localPart)

		used := acct.UsedMB
		row := registry.Account{
			DomainID:   domainID,
			LocalPart:  localPart,
			Email:      email,
			AssignedMB: acct.AssignedMB,
			UsedMB:     &used,
			QuotaHash:  quotaFingerprint(acct.AssignedMB),
			LastSeenAt: now,
		}
		if acct.AssignedMB != nil {
			free := *acct.AssignedMB - used
			row.FreeMB = &free
		}
		w.buffer = append(w.buffer, row)
	}

	if len(w.buffer) >= w.flushThreshold {
		w.flush(ctx)
	}
}

// Finish flushes the remaining buffer and hard-deletes every account of a
// processed domain whose local part was not observed in this pass. A
// processed domain with zero observations loses all of its accounts.
func (w *Writer) Finish(ctx context.Context) error {
	w.flush(ctx)

	for _, domainID := range w.processed {
		removed, err := w.store.DeleteUnseenAccounts(ctx, domainID, w.seen[domainID])
		if err != nil {
			w.fail(err, domainID.String())
			continue
		}
		if removed > 0 {
			w.logger.Info("removed departed accounts",
				zap.String("domain_id", domainID.String()),
				zap.Int64("count", removed))
		}
	}

	return w.firstErr
}

func (w *Writer) flush(ctx context.Context) {
	if len(w.buffer) == 0 {
		return
	}
	if err := w.store.UpsertAccounts(ctx, w.buffer); err != nil {
		w.fail(err, "")
	}
	w.buffer = w.buffer[:0]
}

func (w *Writer) fail(err error, subject string) {
	w.logger.Error("mirror write failed",
		zap.String("subject", subject),
		zap.Error(err))
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func quotaFingerprint(assignedMB *int64) string {
	if assignedMB == nil {
		return "unlimited"
	}
	return strconv.FormatInt(*assignedMB, 10)
}
