package axigen

import (
	"context"
	"fmt"
	"strings"
)

// Session is one exclusive, stateful CLI connection scoped to at most one
// domain at a time. It implements the session contract consumed by the sync
// engine: scope operations report ordinary rejections via ok=false and
// reserve errors for transport faults.
type Session struct {
	cli *Client
}

// OpenSession dials the target's CLI port and authenticates.
func OpenSession(ctx context.Context, t Target) (*Session, error) {
	cli, err := DialClient(ctx, t.Host, t.CLIPort, t.timeout())
	if err != nil {
		return nil, err
	}
	if err := cli.Login(t.Username, t.Password); err != nil {
		cli.Close()
		return nil, err
	}
	return &Session{cli: cli}, nil
}

// SelectDomain switches the session into the named domain's scope.
func (s *Session) SelectDomain(name string) (bool, string, error) {
	return s.run("UPDATE domain name " + name)
}

// SelectAccount switches into an account's scope within the current domain.
func (s *Session) SelectAccount(localPart string) (bool, string, error) {
	return s.run("UPDATE account name " + localPart)
}

// EnterQuotaScope enters the quota configuration context of the current
// account.
func (s *Session) EnterQuotaScope() (bool, string, error) {
	return s.run("CONFIG quotas")
}

// ReadQuota requests the current quota display and returns the assigned
// mailbox size in KB. Zero assignedKB means unlimited/unset.
func (s *Session) ReadQuota() (assignedKB int64, ok bool, detail string, err error) {
	reply, err := s.cli.Run("SHOW")
	if err != nil {
		return 0, false, "", err
	}
	if IsNegativeReply(reply) {
		return 0, false, strings.TrimSpace(reply), nil
	}
	return AssignedKBFromQuotas(ParseQuotaShow(reply)), true, "", nil
}

// ExitScope navigates one scope level up (BACK). Only transport faults are
// reported; the CLI accepts BACK from any scope.
func (s *Session) ExitScope() error {
	_, err := s.cli.Run("BACK")
	return err
}

// Close terminates the CLI connection.
func (s *Session) Close() error {
	if s.cli == nil {
		return nil
	}
	err := s.cli.Close()
	s.cli = nil
	return err
}

func (s *Session) run(command string) (bool, string, error) {
	if s.cli == nil {
		return false, "", fmt.Errorf("session is closed")
	}
	reply, err := s.cli.Run(command)
	if err != nil {
		return false, "", err
	}
	if IsNegativeReply(reply) {
		return false, strings.TrimSpace(reply), nil
	}
	return true, "", nil
}
