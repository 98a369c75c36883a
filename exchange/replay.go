package exchange

import (
	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
)

// Event is one application of a control file row inside the simulation.
type Event struct {
	// Row is the index of the applied row.
	Row int
	// Time is the absolute timestamp of the row.
	Time float64
	// Delay is the simulated time waited before applying the row.
	Delay float64
	// Final marks the application emitted after the replay loop.
	Final bool
}

// ReplaySchedule returns the sequence of delays and row applications the generated
// control replay performs for the given timestamps.
func ReplaySchedule(timestamps []float64) []Event {
	events := make([]Event, 0, len(timestamps))
	previous := 0.0
	for i, t := range timestamps {
		events = append(events, Event{
			Row:   i,
			Time:  t,
			Delay: t - previous,
			Final: i == len(timestamps)-1,
		})
		previous = t
	}
	return events
}

// Schedule returns the replay schedule of a control file payload.
func (f *File) Schedule() ([]Event, error) {
	if f.Kind != Control {
		return nil, errors.Wrapf(hdl.ErrUnsupportedOperation, "exchange file %q is not a control file", f.Name)
	}
	if f.data == nil {
		return nil, errors.Wrapf(hdl.ErrInvalidPayload, "exchange file %q has no payload", f.Name)
	}
	return ReplaySchedule(f.data[0].Real), nil
}
