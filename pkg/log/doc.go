// Package log provides structured protocol logging for martd clients.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events of the poll loop: poll requests and responses,
// publishes, message delivery, state changes and errors.
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/martd/sub.mlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Poll requests and responses (PollEvent)
//   - Publish requests (PublishEvent)
//   - Per-channel delivery (DeliveryEvent)
//   - Poll loop state changes (StateChangeEvent)
//   - Errors of every kind (ErrorEventData)
//
// # File Format
//
// Log files use CBOR encoding with .mlog extension. The martd-log CLI tool
// provides viewing, filtering and statistics.
package log
