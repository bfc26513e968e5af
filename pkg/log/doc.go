// Package log provides structured logging for the core via zerolog: a
// package-level Logger, Init(Config) to pick console vs JSON output, and
// WithComponent for per-subsystem child loggers (autoheal, chainlog,
// keymanager, killswitch, stabilizer, monitor).
package log
