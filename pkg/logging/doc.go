// Package logging configures the log/slog loggers used across routeval.
//
// The validation middleware, the route server and the CLI all take a
// *slog.Logger. This package builds one from a level and an output format:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	logger.Debug("validation: request rejected", "target", "query")
//
// Library code that is handed no logger uses Nop, so validation stays
// silent unless the caller opts in.
package logging
