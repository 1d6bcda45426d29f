package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailwatch/core/utils"
)

// Session is the stateful administrative handle a domain pass drives. Scope
// navigation returns (ok, detail) for ordinary negative replies; only
// transport faults surface as errors.
type Session interface {
	SelectDomain(name string) (ok bool, detail string, err error)
	SelectAccount(localPart string) (ok bool, detail string, err error)
	EnterQuotaScope() (ok bool, detail string, err error)
	ReadQuota() (assignedKB int64, ok bool, detail string, err error)
	ExitScope() error
	Close() error
}

// Dialer opens one exclusive session. Each domain pass dials its own.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a plain function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }

// Stages a domain pass can fail at.
const (
	StageSessionSetup      = "session-setup"
	StageDomainScope       = "domain-scope"
	StageValidate          = "validate"
	StageAccountScope      = "account-scope"
	StageQuotaScope        = "quota-scope"
	StageQuotaRead         = "quota-read"
	StageSession           = "session"
	StageDispatchException = "dispatch-exception"
)

// ProcessDomain runs one full domain pass over a single exclusive session:
// select the domain scope, then visit every queued account sequentially and
// read its assigned quota. Account-level failures are recorded and skipped
// over; a transport fault ends the pass but keeps whatever was already
// collected.
func ProcessDomain(ctx context.Context, dialer Dialer, domain string, emails []string, usageKB map[string]int64) DomainResult {
	started := time.Now()
	result := DomainResult{Domain: domain, Status: StatusSuccess}

	done := func() DomainResult {
		result.Duration = time.Since(started)
		return result
	}

	if len(emails) == 0 {
		return done()
	}

	session, err := dialer.Dial(ctx)
	if err != nil {
		result.Status = StatusFailed
		result.Errors = append(result.Errors, ProcessError{Stage: StageSessionSetup, Err: err.Error()})
		return done()
	}
	defer session.Close()

	ok, detail, err := session.SelectDomain(domain)
	if err != nil {
		result.Status = StatusFailed
		result.Errors = append(result.Errors, ProcessError{Stage: StageDomainScope, Err: err.Error()})
		return done()
	}
	if !ok {
		result.Status = StatusFailed
		result.Errors = append(result.Errors, ProcessError{Stage: StageDomainScope, Err: detail})
		return done()
	}

	for _, email := range emails {
		localPart, verr := splitLocalPart(email, domain)
		if verr != "" {
			result.Errors = append(result.Errors, ProcessError{Email: email, Stage: StageValidate, Err: verr})
			continue
		}

		usedMB := utils.KBToMBFloor(usageKB[email])
		record := AccountObservation{Email: email, LocalPart: localPart, UsedMB: usedMB}

		stop := func(stage, msg string) DomainResult {
			result.Errors = append(result.Errors, ProcessError{Email: email, Stage: stage, Err: msg})
			if len(result.Accounts) > 0 {
				result.Status = StatusPartial
			} else {
				result.Status = StatusFailed
			}
			return done()
		}

		ok, detail, err := session.SelectAccount(localPart)
		if err != nil {
			return stop(StageSession, err.Error())
		}
		if !ok {
			// best-effort record: used storage is still known
			result.Errors = append(result.Errors, ProcessError{Email: email, Stage: StageAccountScope, Err: detail})
			result.Accounts = append(result.Accounts, record)
			continue
		}

		ok, detail, err = session.EnterQuotaScope()
		if err != nil {
			return stop(StageSession, err.Error())
		}
		if !ok {
			result.Errors = append(result.Errors, ProcessError{Email: email, Stage: StageQuotaScope, Err: detail})
			result.Accounts = append(result.Accounts, record)
			if err := session.ExitScope(); err != nil {
				return stop(StageSession, err.Error())
			}
			continue
		}

		assignedKB, ok, detail, err := session.ReadQuota()
		if err != nil {
			return stop(StageSession, err.Error())
		}
		if !ok {
			result.Errors = append(result.Errors, ProcessError{Email: email, Stage: StageQuotaRead, Err: detail})
		} else if assignedKB > 0 {
			mb := utils.KBToMBFloor(assignedKB)
			record.AssignedMB = &mb
		}
		result.Accounts = append(result.Accounts, record)

		// back out of the quota context and the account scope
		if err := session.ExitScope(); err != nil {
			return stop(StageSession, err.Error())
		}
		if err := session.ExitScope(); err != nil {
			return stop(StageSession, err.Error())
		}
	}

	if len(result.Errors) > 0 {
		result.Status = StatusPartial
	}
	return done()
}

// splitLocalPart extracts the local part of an address expected to belong to
// the given domain. Returns a non-empty problem description on mismatch.
func splitLocalPart(email, domain string) (string, string) {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "", "missing local part"
	}
	if got := email[at+1:]; !strings.EqualFold(got, domain) {
		return "", fmt.Sprintf("address belongs to %q", got)
	}
	return email[:at], ""
}
