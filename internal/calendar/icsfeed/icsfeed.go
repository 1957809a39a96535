// Package icsfeed renders a merged calendar list as an iCalendar feed.
package icsfeed

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calendar-service/internal/calendar/listing"
)

const productID = "-//calendar-service//availability feed//EN"

// Encode writes one VEVENT per item. Projected slots carry a weekly RRULE
// so calendar clients keep repeating them.
func Encode(name string, items []listing.Item, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, it := range items {
		ev := cal.AddEvent(uid(it))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(it.Start.UTC())
		ev.SetEndAt(it.End.UTC())
		ev.SetSummary(it.Title)

		if it.Location != "" {
			ev.SetLocation(it.Location)
		}
		if it.Description != "" {
			ev.SetDescription(it.Description)
		}

		if it.IsSlot {
			ev.AddProperty(ical.ComponentPropertyRrule, "FREQ=WEEKLY")
			category := it.Category
			if category == "" {
				category = "availability"
			}
			ev.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(category))
		} else if it.EventType != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(it.EventType))
		}
	}

	return cal.Serialize()
}

func uid(it listing.Item) string {
	return strings.NewReplacer(":", "-", " ", "_").Replace(it.ID) + "@calendar-service"
}
