// Package layout computes time-grid geometry for events and availability slots.
package layout

import (
	"math"
	"time"

	"calendar-service/internal/calendar/palette"
	"calendar-service/internal/models"
)

// Grid describes the visible hour window of a day/week view.
type Grid struct {
	StartHour   int
	EndHour     int
	PxPerMinute float64
	MinHeightPx float64
}

func DefaultGrid() Grid {
	return Grid{
		StartHour:   7,
		EndHour:     21,
		PxPerMinute: 1,
		MinHeightPx: 15,
	}
}

type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// place returns false for items that start before the window or at/after its end.
// Those are left out of the render set rather than clamped into view.
func (g Grid) place(start models.Clock, durationMinutes int) (Position, bool) {
	if start.Minutes() < g.StartHour*60 || start.Minutes() >= g.EndHour*60 {
		return Position{}, false
	}

	fromGridStart := (start.Hour-g.StartHour)*60 + start.Minute

	return Position{
		Top:    math.Max(0, float64(fromGridStart)*g.PxPerMinute),
		Height: math.Max(float64(durationMinutes)*g.PxPerMinute, g.MinHeightPx),
	}, true
}

// PositionEvent places an event by its local wall-clock start.
func (g Grid) PositionEvent(e models.Event) (Position, bool) {
	start := models.Clock{Hour: e.Start.Hour(), Minute: e.Start.Minute()}
	return g.place(start, eventDuration(e))
}

func (g Grid) PositionSlot(s models.AvailabilitySlot) (Position, bool) {
	return g.place(s.Start, s.End.Minutes()-s.Start.Minutes())
}

func eventDuration(e models.Event) int {
	sy, sm, sd := e.Start.Date()
	ey, em, ed := e.End.In(e.Start.Location()).Date()
	if sy == ey && sm == em && sd == ed {
		end := e.End.In(e.Start.Location())
		return (end.Hour()*60 + end.Minute()) - (e.Start.Hour()*60 + e.Start.Minute())
	}
	return int(e.End.Sub(e.Start).Minutes())
}

// IsTimeAvailable reports whether any slot on dayIndex touches the hour cell
// by hour alone: startHour <= hour < endHour. A slot starting at 09:30 counts
// for hour 9 and one ending at 10:30 does not count for hour 10.
func IsTimeAvailable(hour, dayIndex int, slots []models.AvailabilitySlot) bool {
	for _, s := range slots {
		if s.DayOfWeek != dayIndex {
			continue
		}
		if s.Start.Hour <= hour && hour < s.End.Hour {
			return true
		}
	}
	return false
}

type PositionedEvent struct {
	Event    models.Event  `json:"event"`
	Position Position      `json:"position"`
	Color    palette.Color `json:"color"`
}

type PositionedSlot struct {
	Slot     models.AvailabilitySlot `json:"slot"`
	Position Position                `json:"position"`
	Color    palette.Color           `json:"color"`
}

type Column struct {
	Date      string            `json:"date"`
	DayOfWeek int               `json:"day_of_week"`
	Events    []PositionedEvent `json:"events"`
	Slots     []PositionedSlot  `json:"slots"`
}

// Day lays out the events starting on date and the slots recurring on its
// weekday. Events are positioned by their wall clock in date's location.
func (g Grid) Day(date time.Time, events []models.Event, slots []models.AvailabilitySlot) Column {
	col := Column{
		Date:      date.Format("2006-01-02"),
		DayOfWeek: int(date.Weekday()),
		Events:    []PositionedEvent{},
		Slots:     []PositionedSlot{},
	}

	loc := date.Location()
	for _, e := range events {
		local := e
		local.Start = e.Start.In(loc)
		local.End = e.End.In(loc)
		if !sameDay(local.Start, date) {
			continue
		}
		pos, ok := g.PositionEvent(local)
		if !ok {
			continue
		}
		col.Events = append(col.Events, PositionedEvent{Event: e, Position: pos, Color: palette.EventColor(e)})
	}

	for _, s := range slots {
		if s.DayOfWeek != col.DayOfWeek {
			continue
		}
		pos, ok := g.PositionSlot(s)
		if !ok {
			continue
		}
		col.Slots = append(col.Slots, PositionedSlot{Slot: s, Position: pos, Color: palette.SlotColor(s)})
	}

	return col
}

// Week returns seven consecutive day columns starting at the week containing date.
func (g Grid) Week(date time.Time, firstDay time.Weekday, events []models.Event, slots []models.AvailabilitySlot) []Column {
	start := WeekStart(date, firstDay)
	cols := make([]Column, 0, 7)
	for i := 0; i < 7; i++ {
		cols = append(cols, g.Day(start.AddDate(0, 0, i), events, slots))
	}
	return cols
}

// WeekStart truncates date to midnight of the most recent firstDay.
func WeekStart(date time.Time, firstDay time.Weekday) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	offset := (int(d.Weekday()) - int(firstDay) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
