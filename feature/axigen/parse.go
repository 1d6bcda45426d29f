package axigen

import (
	"strings"

	"mailwatch/core/utils"
)

// IsNegativeReply classifies a CLI reply as an ordinary negative response.
// Axigen error wording varies; the match is deliberately broad.
func IsNegativeReply(reply string) bool {
	r := strings.ToLower(reply)
	return strings.Contains(r, "-err") ||
		strings.Contains(r, "error") ||
		strings.Contains(r, "unknown") ||
		strings.Contains(r, "failed")
}

// DomainInfo is one row of the domain inventory.
type DomainInfo struct {
	// Name is the domain name as printed by the CLI.
	Name string
	// Status is the free-text status column (enabled, disabled, locked, ...).
	// Empty when the listing prints no status.
	Status string
}

// ParseDomainList parses the table printed by LIST domains.
// The CLI prints a loose table; header and rule lines are skipped and the
// first column of each data line is taken as the domain, the second (when
// present) as its status.
func ParseDomainList(raw string) []DomainInfo {
	var domains []DomainInfo
	seen := make(map[string]struct{})

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "list") || strings.HasPrefix(lower, "domains") {
			continue
		}
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "===") {
			continue
		}
		if strings.HasPrefix(line, "+OK") || strings.HasPrefix(line, "-ERR") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		candidate := fields[0]
		if !strings.Contains(candidate, ".") {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		info := DomainInfo{Name: candidate}
		if len(fields) > 1 {
			info.Status = fields[1]
		}
		domains = append(domains, info)
	}

	return domains
}

// ParseQuotaShow parses the output of SHOW inside the quota configuration
// context. Lines look like:
//
//	totalMessageSize = 2097152 [explicit, overrides inherited value: 1048576]
//
// Only the key and the first value token are kept.
func ParseQuotaShow(raw string) map[string]string {
	quotas := make(map[string]string)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "general parameters") {
			continue
		}
		if strings.HasPrefix(lower, "inherited from") {
			continue
		}
		if strings.HasPrefix(lower, "using defaults") {
			continue
		}
		if !strings.Contains(line, "=") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[1] == "=" {
			quotas[fields[0]] = fields[2]
		}
	}

	return quotas
}

// AssignedKBFromQuotas extracts the assigned mailbox size in KB from a parsed
// quota table. Zero means unlimited or not explicitly set.
func AssignedKBFromQuotas(quotas map[string]string) int64 {
	raw, ok := quotas["totalMessageSize"]
	if !ok {
		return 0
	}
	kb := utils.ToInt64(raw)
	if kb <= 0 {
		return 0
	}
	return kb
}
