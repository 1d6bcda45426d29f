// Package axigen implements the collaborators the sync engine talks to on an
// Axigen mail server: the line-oriented administrative CLI and the WebAdmin
// bulk usage report.
//
// # Sessions
//
// The administrative CLI is stateful: one TCP connection holds a current
// scope (domain, account, quota configuration) that commands navigate with
// UPDATE/CONFIG/BACK. Session is the exclusive handle over one such
// connection; all scope changes are methods on the handle and the caller owns
// the scope discipline. Ordinary negative replies (-ERR and friends) are
// returned as values, never as Go errors; only transport faults produce
// errors.
//
// # Usage report
//
// FetchUsageSnapshot pulls the /data/accounts TSV from WebAdmin over HTTPS
// (falling back to plain HTTP for servers without TLS) and returns raw rows.
// A nil row slice means the source was entirely unavailable, which is
// distinct from an empty report.
package axigen
