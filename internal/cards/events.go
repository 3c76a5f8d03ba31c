package cards

import (
	"html/template"

	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/events"
	"kesurge.org/kesurge-web/internal/format"
)

// Card copy is Spanish only.
const cardLang = "es"

func eventDate(raw string) string {
	return format.EventDate(raw, cardLang)
}

// EventView is an event plus its resolved category name.
type EventView struct {
	domain.Event
	CategoryName string
}

type agendaView struct {
	events.AgendaRow
	CategoryName string
}

func (r *Renderer) eventView(e domain.Event) EventView {
	v := EventView{Event: e}
	if e.Category != "" {
		v.CategoryName = r.categories.Name(e.Category)
	}
	return v
}

// RenderEvent returns the card of one event.
func (r *Renderer) RenderEvent(e domain.Event) template.HTML {
	return r.exec("event_card", r.eventView(e))
}

// RenderEvents concatenates event cards, or emptyMessage when there are none.
func (r *Renderer) RenderEvents(list []domain.Event, emptyMessage string) template.HTML {
	if len(list) == 0 {
		return r.exec("event_list_empty", emptyMessage)
	}
	views := make([]EventView, 0, len(list))
	for _, e := range list {
		views = append(views, r.eventView(e))
	}
	return r.exec("event_list", views)
}

// RenderAgendaRow returns one numbered agenda row.
func (r *Renderer) RenderAgendaRow(row events.AgendaRow) template.HTML {
	return r.exec("agenda_row", r.agendaView(row))
}

// RenderAgenda concatenates agenda rows, or emptyMessage when there are none.
func (r *Renderer) RenderAgenda(rows []events.AgendaRow, emptyMessage string) template.HTML {
	if len(rows) == 0 {
		return r.exec("event_list_empty", emptyMessage)
	}
	views := make([]agendaView, 0, len(rows))
	for _, row := range rows {
		views = append(views, r.agendaView(row))
	}
	return r.exec("agenda_list", views)
}

func (r *Renderer) agendaView(row events.AgendaRow) agendaView {
	v := agendaView{AgendaRow: row}
	if row.Category != "" {
		v.CategoryName = r.categories.Name(row.Category)
	}
	return v
}
