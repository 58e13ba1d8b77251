package notify

import (
	"time"

	"github.com/rs/zerolog"
)

// Event types emitted by the core. Downstream messaging consumes these; the
// core never waits on delivery.
const (
	EventShiftPosted         = "shift_posted"
	EventShiftUpdated        = "shift_updated"
	EventShiftCancelled      = "shift_cancelled"
	EventShiftFilled         = "shift_filled"
	EventApplicationReceived = "application_received"
	EventApplicationAccepted = "application_accepted"
	EventClockIn             = "clock_in"
	EventClockOut            = "clock_out"
	EventBreakStart          = "break_start"
	EventBreakEnd            = "break_end"
)

type Event struct {
	Type   string
	At     time.Time
	Fields map[string]any
}

type Sink interface {
	Emit(e Event)
}

// LogSink writes events to the audit log. Emit never blocks the caller on
// anything slower than the log writer.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(e Event) {
	ev := s.Logger.Info().Str("event", e.Type).Time("at", e.At)
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("audit")
}

// NopSink discards events; used in tests.
type NopSink struct{}

func (NopSink) Emit(Event) {}
