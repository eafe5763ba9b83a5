package card

import (
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// Status re-exports model.CardStatus so registry callers need not import model.
type Status = model.CardStatus

// Info is a read-only snapshot of one registered card.
type Info struct {
	ID        string
	Title     string
	Interval  time.Duration
	Scheduled bool
	HasRender bool
	HasUpdate bool
	Status    Status
}

func recordRun(s *Status, at time.Time, took time.Duration, err error) {
	s.InFlight--
	s.Runs++
	s.LastRunAt = at
	s.LastDuration = took
	if err != nil {
		s.Failures++
		s.ConsecutiveErrs++
		s.LastOK = false
		s.LastError = err.Error()
		return
	}
	s.ConsecutiveErrs = 0
	s.LastOK = true
	s.LastError = ""
}
