// Package database manages the connection to the relational database that
// holds the persisted mirror of the monitored mail servers (servers, domains,
// accounts, change log, snapshots).
//
// The connection is established with explicit connect/read/write timeouts so
// that a stalled database never hangs a sync run indefinitely. GORM's own
// logging is silenced; failures surface through the application logger.
package database
