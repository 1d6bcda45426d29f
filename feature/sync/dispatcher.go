package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// bridgeCapacity bounds the hand-off queue between workers and the consumer,
// so a slow consumer stalls producers instead of growing memory.
const bridgeCapacity = 500

// Dispatcher fans one server's domains out over a bounded worker pool and
// funnels every DomainResult through a single bounded channel to one
// consumer.
type Dispatcher struct {
	// Workers is the concurrency limit; the effective pool size never
	// exceeds the number of domains and is never zero.
	Workers int
	// Process runs one domain pass. Defaults to ProcessDomain via the
	// dialer-bound closure the caller supplies.
	Process func(ctx context.Context, domain string) DomainResult
	Logger  *zap.Logger
}

// Run processes the given domains and invokes onResult for each completed
// domain in completion order. It returns once every domain has produced
// exactly one result and the consumer has seen all of them.
func (d *Dispatcher) Run(ctx context.Context, domains []string, onResult func(DomainResult)) Report {
	started := time.Now()

	domains = normalizeDomains(domains)
	report := Report{TotalDomains: len(domains)}
	if len(domains) == 0 {
		report.Duration = time.Since(started)
		return report
	}

	workers := d.Workers
	if workers > len(domains) {
		workers = len(domains)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	bridge := make(chan DomainResult, bridgeCapacity)

	var wg gosync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for domain := range jobs {
				bridge <- d.processSafely(ctx, domain)
			}
		}()
	}

	go func() {
		for _, domain := range domains {
			jobs <- domain
		}
		close(jobs)
		wg.Wait()
		// all workers are done; closing the bridge is the end-of-stream
		// signal for the consumer
		close(bridge)
	}()

	for result := range bridge {
		switch result.Status {
		case StatusSuccess:
			report.Success++
		case StatusPartial:
			report.Partial++
		default:
			report.Failed++
		}
		if onResult != nil {
			onResult(result)
		}
	}

	report.Duration = time.Since(started)
	return report
}

// processSafely guarantees every submitted domain yields exactly one result:
// a panicking pass is substituted with a synthetic FAILED result instead of
// taking the whole run down.
func (d *Dispatcher) processSafely(ctx context.Context, domain string) (result DomainResult) {
	defer func() {
		if r := recover(); r != nil {
			if d.Logger != nil {
				d.Logger.Error("domain pass panicked",
					zap.String("domain", domain),
					zap.Any("panic", r))
			}
			result = DomainResult{
				Domain: domain,
				Status: StatusFailed,
				Errors: []ProcessError{{Stage: StageDispatchException, Err: fmt.Sprint(r)}},
			}
		}
	}()
	return d.Process(ctx, domain)
}

func normalizeDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
