package killswitch

import (
	"sync"
	"time"

	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/log"
	"github.com/xi-lua/sentinel/pkg/types"
)

// EventLogFunc is called for every reported event and for the trip itself,
// so the kill-switch can write to the audit chain without this package
// depending on chainlog directly. May be nil.
type EventLogFunc func(event string, metadata types.Metadata)

// Switch is a sliding-window trip wire: once threshold suspicious events
// land within window of each other, it activates and stays activated for
// the rest of the process's life.
type Switch struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	events    []time.Time
	armed     bool
	onEvent   EventLogFunc
}

// Options configures a new Switch.
type Options struct {
	// Threshold is the number of events within Window that trips the
	// switch. Defaults to 3 if zero.
	Threshold int

	// Window is the trailing duration events are counted over. Defaults
	// to 60 seconds if zero.
	Window time.Duration

	// OnEvent, if set, is called after every Report and after Activate,
	// so callers can mirror these events onto an audit chain.
	OnEvent EventLogFunc
}

// New constructs an armed Switch.
func New(opts Options) *Switch {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 3
	}
	window := opts.Window
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Switch{
		threshold: threshold,
		window:    window,
		armed:     true,
		onEvent:   opts.OnEvent,
	}
}

// Report records a suspicious event of the given type and activates the
// switch if the trailing window now holds threshold or more events. It
// returns true if this call caused (or found) the switch tripped.
func (s *Switch) Report(eventType string, details types.Metadata) bool {
	s.mu.Lock()
	now := time.Now()
	s.events = append(s.events, now)
	s.events = pruneBefore(s.events, now.Add(-s.window))
	count := len(s.events)
	shouldTrip := s.armed && count >= s.threshold
	s.mu.Unlock()

	meta := details.Clone()
	if meta == nil {
		meta = types.Metadata{}
	}
	meta["type"] = eventType
	meta["count_in_window"] = count
	if s.onEvent != nil {
		s.onEvent("Suspicious: "+eventType, meta)
	}

	if shouldTrip {
		s.Activate(eventType, count)
		return true
	}
	return !s.Armed()
}

func pruneBefore(events []time.Time, cutoff time.Time) []time.Time {
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Activate trips the switch unconditionally. Idempotent: a second call
// after the switch is already tripped does nothing.
func (s *Switch) Activate(reason string, eventCount int) {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	s.armed = false
	threshold := s.threshold
	window := s.window
	s.mu.Unlock()

	logger := log.WithComponent("killswitch")
	logger.Error().
		Str("reason", reason).
		Int("event_count", eventCount).
		Int("threshold", threshold).
		Msg("kill-switch activated")

	if s.onEvent != nil {
		s.onEvent("KILL-SWITCH ACTIVATED", types.Metadata{
			"reason":    reason,
			"threshold": threshold,
			"window_s":  window.Seconds(),
		})
	}
}

// Armed reports whether the switch has not yet tripped.
func (s *Switch) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Check returns errs.ErrKillSwitchTripped if the switch has tripped, nil
// otherwise. Intended as a guard at the top of every admission path.
func (s *Switch) Check() error {
	if !s.Armed() {
		return errs.ErrKillSwitchTripped
	}
	return nil
}

// EventsInWindow returns how many events currently fall within the
// trailing window, for status reporting.
func (s *Switch) EventsInWindow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.events = pruneBefore(s.events, now.Add(-s.window))
	return len(s.events)
}
