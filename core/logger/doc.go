// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production).
//
// # Context Awareness
//
// Sync runs span many servers and domains. The WithServer and WithRun helpers
// attach correlation fields so that every log entry emitted during one server
// pass or one run can be filtered together.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Sync started")
//
//	// Inside a server pass:
//	l := logger.WithServer(log, server.Name)
//	l.Error("Inventory fetch failed", zap.Error(err))
package logger
