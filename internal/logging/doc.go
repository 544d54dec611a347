// Package logging provides structured logging for the borrowledger tools.
//
// It wraps Go's log/slog with a JSON handler. The ledger core never logs;
// only the command-line harness does, so that benchmark and stress runs can
// be inspected after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithRun("stress-1").WithWorker(3)
//	runLogger.Info("cycle complete", "cycles", 200)
//
// Each line is a JSON object:
//
//	{"time":"...","level":"INFO","msg":"cycle complete","run_id":"stress-1","worker":3,"cycles":200}
//
// # Rotation
//
// [NewRotatingLogger] rotates borrowledger.log once it reaches
// RotationConfig.MaxSizeMB, keeping MaxBackups older files as
// borrowledger.log.1 (newest) to borrowledger.log.N, optionally gzipped.
//
// # Reading Logs Back
//
// [ReadLogs] parses a log directory into [LogEntry] values, [FilterLogs]
// narrows them by level, time, run or message text, and [SummarizeRuns]
// lists the runs found, most recent first. A [Follower] streams entries as
// they are appended, across rotations.
//
// # Testing
//
// Use [NopLogger] to discard all output.
package logging
