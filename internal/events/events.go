package events

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/fixtures"
)

const (
	// UpcomingLimit caps the featured events shown on the home page.
	UpcomingLimit = 3
	// StaggerStep is the reveal delay added per agenda row.
	StaggerStep = 150 * time.Millisecond
)

// EmptyMessage is shown when no events could be loaded.
const EmptyMessage = "No hay eventos disponibles por el momento."

// Upcoming returns the first UpcomingLimit featured events in source order.
func Upcoming(all []domain.Event) []domain.Event {
	out := make([]domain.Event, 0, UpcomingLimit)
	for _, e := range all {
		if !e.Featured {
			continue
		}
		out = append(out, e)
		if len(out) == UpcomingLimit {
			break
		}
	}
	return out
}

// AgendaRow is one numbered entry of the full agenda.
type AgendaRow struct {
	domain.Event
	Index  int
	Number string
	Delay  time.Duration
}

// DelayCSS renders Delay as a CSS time value.
func (r AgendaRow) DelayCSS() string {
	return fmt.Sprintf("%dms", r.Delay.Milliseconds())
}

// Agenda numbers every event from "01" and staggers the reveal by StaggerStep per row.
func Agenda(all []domain.Event) []AgendaRow {
	rows := make([]AgendaRow, 0, len(all))
	for i, e := range all {
		rows = append(rows, AgendaRow{
			Event:  e,
			Index:  i,
			Number: fmt.Sprintf("%02d", i+1),
			Delay:  time.Duration(i) * StaggerStep,
		})
	}
	return rows
}

// Source reads event fixture files.
type Source interface {
	Events(name string) ([]domain.Event, error)
}

// Feed loads the home and agenda event lists from fixtures.
type Feed struct {
	src    Source
	logger *zap.Logger
}

// NewFeed returns a feed over src.
func NewFeed(src Source, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{src: src, logger: logger}
}

// Upcoming loads eventos.json and returns its featured head. Errors are logged and returned
// so the caller can render the empty state.
func (f *Feed) Upcoming() ([]domain.Event, error) {
	all, err := f.src.Events(fixtures.EventsFile)
	if err != nil {
		f.logger.Error("load events", zap.String("file", fixtures.EventsFile), zap.Error(err))
		return nil, err
	}
	return Upcoming(all), nil
}

// Agenda loads agenda.json as numbered rows.
func (f *Feed) Agenda() ([]AgendaRow, error) {
	all, err := f.src.Events(fixtures.AgendaFile)
	if err != nil {
		f.logger.Error("load agenda", zap.String("file", fixtures.AgendaFile), zap.Error(err))
		return nil, err
	}
	return Agenda(all), nil
}
