package axigen

import (
	"context"
	"crypto/tls"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UsageRow is one raw row of the WebAdmin usage report. Values are kept as
// printed; the work planner owns validation and defaulting.
type UsageRow struct {
	// Email is the accountEmail column.
	Email string
	// UsedKB is the mboxSizeKb column, unparsed.
	UsedKB string
}

// FetchUsageSnapshot downloads and parses the /data/accounts TSV report.
// HTTPS is tried first (some deployments are HTTPS-only, often with expired
// or self-signed certificates), then plain HTTP. A nil slice with an error
// means the source is entirely unavailable this run; an empty slice is a
// valid zero-account report.
func FetchUsageSnapshot(ctx context.Context, t Target) ([]UsageRow, error) {
	client := &http.Client{
		Timeout: t.timeout(),
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	urls := []string{
		fmt.Sprintf("https://%s:%d/data/accounts", t.Host, t.WebadminPort),
		fmt.Sprintf("http://%s:%d/data/accounts", t.Host, t.WebadminPort),
	}

	var lastErr error
	for _, url := range urls {
		rows, err := fetchUsageFrom(ctx, client, url, t.Username, t.Password)
		if err != nil {
			lastErr = err
			continue
		}
		return rows, nil
	}

	return nil, fmt.Errorf("usage snapshot unavailable: %w", lastErr)
}

func fetchUsageFrom(ctx context.Context, client *http.Client, url, user, password string) ([]UsageRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build usage request: %w", err)
	}
	req.SetBasicAuth(user, password)
	// some servers mishandle kept-alive report connections
	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usage request returned status %d", resp.StatusCode)
	}

	return parseUsageTSV(resp.Body)
}

// parseUsageTSV reads the tab-separated report, locating the accountEmail and
// mboxSizeKb columns by header name.
func parseUsageTSV(r io.Reader) ([]UsageRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []UsageRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage report header: %w", err)
	}

	emailCol, sizeCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "accountEmail":
			emailCol = i
		case "mboxSizeKb":
			sizeCol = i
		}
	}
	if emailCol < 0 {
		return nil, fmt.Errorf("usage report has no accountEmail column")
	}

	rows := []UsageRow{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read usage report row: %w", err)
		}

		row := UsageRow{}
		if emailCol < len(record) {
			row.Email = record[emailCol]
		}
		if sizeCol >= 0 && sizeCol < len(record) {
			row.UsedKB = record[sizeCol]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
