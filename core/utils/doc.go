// Package utils provides small conversion helpers shared across features.
//
// Remote data sources (administrative CLI replies, usage report columns)
// deliver loosely typed values; these helpers normalize them without
// producing errors for the routine garbage those sources emit.
package utils
