// Package storage provides the object storage client used to archive per-run
// sync reports.
//
// The Client interface wraps the Minio SDK so that consumers (and tests, via
// the mocks subpackage) never depend on a live endpoint. Archive is the only
// consumer: after a run completes, its summary report is serialized to JSON
// and uploaded under reports/<run-id>.json.
package storage
