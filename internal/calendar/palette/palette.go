// Package palette maps event types and slot categories onto display colors.
package palette

import (
	"strings"

	"calendar-service/internal/models"
)

type Color string

const (
	Green  Color = "green"
	Blue   Color = "blue"
	Purple Color = "purple"
	Orange Color = "orange"
	Red    Color = "red"
	Teal   Color = "teal"
	Gray   Color = "gray"
	Yellow Color = "yellow"
)

// DefaultCategory is used for anything the table does not know.
const DefaultCategory = "session"

// TrialColor wins over every category mapping.
const TrialColor = Orange

var table = map[string]Color{
	"session":      Green,
	"class":        Blue,
	"lesson":       Blue,
	"availability": Teal,
	"meeting":      Purple,
	"admin":        Purple,
	"exam":         Red,
	"holiday":      Gray,
	"break":        Gray,
	"event":        Yellow,
	"trial":        TrialColor,
}

// ColorFor looks the category up case-insensitively.
func ColorFor(category string) Color {
	if c, ok := table[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return table[DefaultCategory]
}

// IsTrial detects trial classes by substring. There is no structured flag
// for trials in the store, so title, description and event type are searched.
func IsTrial(e models.Event) bool {
	for _, s := range []string{e.Title, e.Description, e.EventType} {
		if strings.Contains(strings.ToLower(s), "trial") {
			return true
		}
	}
	return false
}

// EventColor resolves the display color of an event: trial first, then an
// explicit color set on the event, then the event type mapping.
func EventColor(e models.Event) Color {
	if IsTrial(e) {
		return TrialColor
	}
	if e.Color != "" {
		return Color(e.Color)
	}
	return ColorFor(e.EventType)
}

func SlotColor(s models.AvailabilitySlot) Color {
	if s.Category == "" {
		return ColorFor("availability")
	}
	return ColorFor(s.Category)
}
