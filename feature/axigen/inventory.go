package axigen

import (
	"context"
	"fmt"
)

// FetchInventory returns every domain hosted on the target, enabled or not,
// by listing them over one throwaway CLI connection.
func FetchInventory(ctx context.Context, t Target) ([]DomainInfo, error) {
	cli, err := DialClient(ctx, t.Host, t.CLIPort, t.timeout())
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	if err := cli.Login(t.Username, t.Password); err != nil {
		return nil, err
	}

	reply, err := cli.Run("LIST domains")
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	if IsNegativeReply(reply) {
		return nil, fmt.Errorf("domain listing rejected: %s", reply)
	}

	return ParseDomainList(reply), nil
}
