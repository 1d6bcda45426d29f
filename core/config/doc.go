// Package config provides configuration management for mailwatch.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Log: Logging level and format
//   - Database: MySQL connection details for the mirror database
//   - Storage: S3/MinIO credentials for the run-report archive
//   - Secrets: the key used to seal server passwords at rest
//   - Sync: worker limits, timeouts and flush thresholds of the engine
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Host)
package config
