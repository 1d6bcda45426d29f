package sync

// Config holds configuration for the sync engine.
type Config struct {
	// Workers is the upper bound on concurrent domain processors per server.
	Workers int `mapstructure:"workers" default:"10"`
	// CLITimeoutSeconds is the admin CLI connect and read timeout in seconds.
	CLITimeoutSeconds int `mapstructure:"cli_timeout_seconds" default:"8"`
	// UsageTimeoutSeconds is the usage report HTTP timeout in seconds.
	UsageTimeoutSeconds int `mapstructure:"usage_timeout_seconds" default:"8"`
	// FlushThreshold is the number of buffered account rows that triggers a
	// database flush before the end of the stream.
	FlushThreshold int `mapstructure:"flush_threshold" default:"2000"`
	// ArchiveReports uploads the run report to object storage when true.
	ArchiveReports bool `mapstructure:"archive_reports" default:"false"`
}
