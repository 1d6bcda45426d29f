package sync

import (
	"sort"
	"strings"

	"mailwatch/core/utils"
	"mailwatch/feature/axigen"
)

// Plan is the work derived from one usage snapshot: which domains to visit,
// which accounts each holds, and the used size reported per mailbox.
type Plan struct {
	// AccountsByDomain lists account emails per domain, in snapshot order.
	AccountsByDomain map[string][]string
	// UsageByEmailKB is the reported mailbox size in KB per email.
	UsageByEmailKB map[string]int64
	// Domains is the sorted list of distinct domains in the snapshot.
	Domains []string
}

// BuildPlan groups the raw usage snapshot into per-domain work. Rows without
// a parseable email are dropped; unparsable or negative sizes count as zero.
// The result is deterministic for a given snapshot.
func BuildPlan(rows []axigen.UsageRow) Plan {
	plan := Plan{
		AccountsByDomain: make(map[string][]string),
		UsageByEmailKB:   make(map[string]int64),
	}

	for _, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		at := strings.LastIndex(email, "@")
		if at <= 0 || at == len(email)-1 {
			continue
		}
		domain := email[at+1:]

		if _, seen := plan.UsageByEmailKB[email]; !seen {
			plan.AccountsByDomain[domain] = append(plan.AccountsByDomain[domain], email)
		}
		usedKB := utils.ToInt64(row.UsedKB)
		if usedKB < 0 {
			usedKB = 0
		}
		plan.UsageByEmailKB[email] = usedKB
	}

	plan.Domains = make([]string, 0, len(plan.AccountsByDomain))
	for domain := range plan.AccountsByDomain {
		plan.Domains = append(plan.Domains, domain)
	}
	sort.Strings(plan.Domains)

	return plan
}
