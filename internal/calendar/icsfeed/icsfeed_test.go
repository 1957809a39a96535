package icsfeed

import (
	"strings"
	"testing"
	"time"

	"calendar-service/internal/calendar/listing"
)

func TestEncode(t *testing.T) {
	start := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	items := []listing.Item{
		{ID: "e1", Title: "Piano lesson", Start: start, End: start.Add(time.Hour), Location: "Room 2", EventType: "class"},
		{ID: "slot:t1:1:10:00-12:00", Title: "Ana available", Start: start.Add(time.Hour), End: start.Add(3 * time.Hour), IsSlot: true},
	}

	out := Encode("Teachers", items, start)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"X-WR-CALNAME:Teachers",
		"UID:e1@calendar-service",
		"SUMMARY:Piano lesson",
		"LOCATION:Room 2",
		"CATEGORIES:CLASS",
		"UID:slot-t1-1-10-00-12-00@calendar-service",
		"RRULE:FREQ=WEEKLY",
		"CATEGORIES:AVAILABILITY",
		"DTSTART:20261019T090000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q", want)
		}
	}

	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}
