// Package log provides the leveled logging interface used across the agent composer.
//
// Every pipeline stage (fetch, analyzer, installer, rewrite, loader, schema) accepts a
// Logger so callers can decide where diagnostics go. Two implementations are provided:
//
//   - GologLogger forwards to a github.com/kataras/golog logger. This is what the
//     agent-composer command uses.
//   - DefaultLogger writes through the standard library log package and is handy in tests,
//     where output is usually captured into a buffer.
//
// NoOpLogger discards everything.
//
// # Levels
//
// Levels are ordered Debug < Info < Warn < Error < None. ParseLevel accepts the
// case-insensitive names "debug", "info", "warn"/"warning", "error" and "none"/"disable",
// which is the format of the --log-level flag and the AGENT_COMPOSER_LOG_LEVEL variable.
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.LogLevelDebug)
//	logger.Info("fetched %s (%d bytes)", url, n)
package log
