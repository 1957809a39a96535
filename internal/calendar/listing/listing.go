// Package listing merges events and recurring availability slots into one
// chronologically ordered, paginated sequence for list views.
package listing

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"calendar-service/internal/calendar/palette"
	"calendar-service/internal/models"
)

// PageSize is the step by which a list's display count grows.
const PageSize = 20

type Tab string

const (
	TabAll      Tab = "all"
	TabEvents   Tab = "events"
	TabSlots    Tab = "slots"
	TabUpcoming Tab = "upcoming"
)

// ParseTab falls back to TabAll for empty input.
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case "":
		return TabAll, nil
	case TabAll, TabEvents, TabSlots, TabUpcoming:
		return Tab(s), nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Item is either an event or a projected slot, told apart by IsSlot.
type Item struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	IsSlot bool          `json:"is_slot"`
	Color  palette.Color `json:"color"`
	UserID string        `json:"user_id,omitempty"`

	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	EventType   string `json:"event_type,omitempty"`

	DayName  string `json:"day_name,omitempty"`
	Category string `json:"category,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Project places a weekly slot on its next occurrence relative to ref:
// ref's own date when the weekday matches, otherwise the nearest later date.
func Project(slot models.AvailabilitySlot, ref time.Time) (time.Time, time.Time, bool) {
	if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
		return time.Time{}, time.Time{}, false
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{weekdays[slot.DayOfWeek]},
		Dtstart:   day,
	})
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	next := rule.After(day, true)
	if next.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	return slot.Start.On(next), slot.End.On(next), true
}

func SlotID(s models.AvailabilitySlot) string {
	return fmt.Sprintf("slot:%s:%d:%s-%s", s.UserID, s.DayOfWeek, s.Start, s.End)
}

func fromEvent(e models.Event) Item {
	return Item{
		ID:          e.ID,
		Title:       e.Title,
		Start:       e.Start,
		End:         e.End,
		Color:       palette.EventColor(e),
		UserID:      e.UserID,
		Location:    e.Location,
		Description: e.Description,
		EventType:   e.EventType,
	}
}

func fromSlot(s models.AvailabilitySlot, start, end time.Time) Item {
	title := "Available"
	if s.UserName != "" {
		title = s.UserName + " available"
	}
	return Item{
		ID:       SlotID(s),
		Title:    title,
		Start:    start,
		End:      end,
		IsSlot:   true,
		Color:    palette.SlotColor(s),
		UserID:   s.UserID,
		DayName:  time.Weekday(s.DayOfWeek).String(),
		Category: s.Category,
		UserName: s.UserName,
	}
}

// Merge concatenates events and projected slots, drops repeated ids and
// sorts by start. Equal starts keep insertion order, so events precede slots.
func Merge(events []models.Event, slots []models.AvailabilitySlot, ref time.Time) []Item {
	items := make([]Item, 0, len(events)+len(slots))
	seen := make(map[string]struct{}, len(events)+len(slots))

	add := func(it Item) {
		if _, ok := seen[it.ID]; ok {
			return
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}

	for _, e := range events {
		add(fromEvent(e))
	}

	for _, s := range slots {
		start, end, ok := Project(s, ref)
		if !ok {
			continue
		}
		add(fromSlot(s, start, end))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})

	return items
}

// Filter applies a tab. TabUpcoming drops everything that started before now.
func Filter(items []Item, tab Tab, now time.Time) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		switch tab {
		case TabEvents:
			if it.IsSlot {
				continue
			}
		case TabSlots:
			if !it.IsSlot {
				continue
			}
		case TabUpcoming:
			if it.Start.Before(now) {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

type Page struct {
	Items        []Item `json:"items"`
	DisplayCount int    `json:"display_count"`
	Total        int    `json:"total"`
	HasMore      bool   `json:"has_more"`
}

// Paginate returns the first displayCount items. A non-positive count means one page.
func Paginate(items []Item, displayCount int) Page {
	if displayCount <= 0 {
		displayCount = PageSize
	}
	n := displayCount
	if n > len(items) {
		n = len(items)
	}
	return Page{
		Items:        items[:n],
		DisplayCount: displayCount,
		Total:        len(items),
		HasMore:      n < len(items),
	}
}

// NextDisplayCount is the cursor for "load more".
func NextDisplayCount(current int) int {
	if current <= 0 {
		return PageSize
	}
	return current + PageSize
}
