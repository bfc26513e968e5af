// Package config loads the core's runtime configuration from environment
// variables (precedence: env var > default; there is no flag layer here,
// unlike the CLI's own flags, since every core component is equally
// reachable as a library). A variable whose value does not parse is
// ignored and its default used. Load then validates every resolved value
// and returns errs.ErrConfig wrapped with the offending setting's name on
// failure.
package config
