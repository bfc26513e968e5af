package killswitch

import (
	"testing"
	"time"

	"github.com/xi-lua/sentinel/pkg/types"
)

func TestReportTripsAtThreshold(t *testing.T) {
	s := New(Options{Threshold: 3, Window: time.Minute})

	if tripped := s.Report("failed_auth", nil); tripped {
		t.Fatal("Report() tripped on first event")
	}
	if tripped := s.Report("failed_auth", nil); tripped {
		t.Fatal("Report() tripped on second event")
	}
	if tripped := s.Report("failed_auth", nil); !tripped {
		t.Fatal("Report() did not trip on third event within threshold")
	}
	if s.Armed() {
		t.Error("Armed() = true after trip")
	}
}

func TestTripIsPermanent(t *testing.T) {
	s := New(Options{Threshold: 1, Window: time.Minute})
	s.Report("tampering_detected", types.Metadata{"severity": "high"})
	if s.Armed() {
		t.Fatal("switch still armed after exceeding threshold of 1")
	}

	// Further reports must not re-arm or otherwise change the tripped state.
	s.Report("failed_auth", nil)
	if s.Armed() {
		t.Error("switch re-armed after a subsequent report")
	}
}

func TestEventsOutsideWindowDoNotAccumulate(t *testing.T) {
	s := New(Options{Threshold: 3, Window: 10 * time.Millisecond})

	s.Report("failed_auth", nil)
	time.Sleep(20 * time.Millisecond)
	s.Report("failed_auth", nil)

	if !s.Armed() {
		t.Fatal("switch tripped despite events falling outside the window")
	}
	if n := s.EventsInWindow(); n != 1 {
		t.Errorf("EventsInWindow() = %d, want 1", n)
	}
}

func TestCheckReflectsArmedState(t *testing.T) {
	s := New(Options{Threshold: 1, Window: time.Minute})
	if err := s.Check(); err != nil {
		t.Fatalf("Check() on armed switch = %v, want nil", err)
	}

	s.Report("unauthorized_access", nil)

	if err := s.Check(); err == nil {
		t.Fatal("Check() on tripped switch = nil, want ErrKillSwitchTripped")
	}
}

func TestOnEventCallbackFiresForReportsAndTrip(t *testing.T) {
	var events []string
	s := New(Options{
		Threshold: 1,
		Window:    time.Minute,
		OnEvent: func(event string, metadata types.Metadata) {
			events = append(events, event)
		},
	})

	s.Report("rate_limit_exceeded", nil)

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2 (report + activate)", len(events))
	}
}
