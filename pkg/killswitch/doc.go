// Package killswitch implements the sliding-window trip wire that shuts
// admission down when suspicious events cluster too tightly in time. It
// counts events in a trailing window; once the count reaches a threshold
// it activates and never resets for the life of the process.
package killswitch
