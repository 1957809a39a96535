package listing

import (
	"fmt"
	"testing"
	"time"

	"calendar-service/internal/models"
)

var loc = time.UTC

func day(d, h, m int) time.Time {
	return time.Date(2026, time.October, d, h, m, 0, 0, loc)
}

func TestProject_DayOfWeekAndNeverPast(t *testing.T) {
	// Monday 19 Oct 2026, late in the day.
	ref := day(19, 22, 30)

	for dow := 0; dow < 7; dow++ {
		slot := models.AvailabilitySlot{DayOfWeek: dow, Start: models.Clock{Hour: 9}, End: models.Clock{Hour: 10}}
		start, end, ok := Project(slot, ref)
		if !ok {
			t.Fatalf("day %d: projection failed", dow)
		}
		if int(start.Weekday()) != dow {
			t.Errorf("day %d: projected weekday %s", dow, start.Weekday())
		}
		refDate := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		if start.Before(refDate) {
			t.Errorf("day %d: projected %s before reference date", dow, start)
		}
		if start.Sub(refDate) >= 7*24*time.Hour {
			t.Errorf("day %d: projected %s more than a week ahead", dow, start)
		}
		if start.Hour() != 9 || end.Hour() != 10 {
			t.Errorf("day %d: wrong clock %s-%s", dow, start, end)
		}
	}
}

func TestProject_TodayMatches(t *testing.T) {
	slot := models.AvailabilitySlot{DayOfWeek: 1, Start: models.Clock{Hour: 8}, End: models.Clock{Hour: 9}}
	start, _, ok := Project(slot, day(19, 12, 0))
	if !ok {
		t.Fatal("projection failed")
	}
	if !start.Equal(day(19, 8, 0)) {
		t.Errorf("expected today's date, got %s", start)
	}
}

func TestProject_InvalidDay(t *testing.T) {
	if _, _, ok := Project(models.AvailabilitySlot{DayOfWeek: 7}, day(19, 0, 0)); ok {
		t.Error("expected projection to fail for day 7")
	}
}

func TestMerge_SortsSlotBeforeLaterEvent(t *testing.T) {
	events := []models.Event{{ID: "e1", Title: "Lesson", Start: day(19, 10, 0), End: day(19, 11, 0)}}
	slots := []models.AvailabilitySlot{{DayOfWeek: 1, UserID: "t1", UserName: "Ana", Start: models.Clock{Hour: 9}, End: models.Clock{Hour: 10}}}

	items := Merge(events, slots, day(19, 0, 0))

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].IsSlot || items[1].ID != "e1" {
		t.Errorf("expected [slot, event], got [%s, %s]", items[0].ID, items[1].ID)
	}
	if items[0].DayName != "Monday" || items[0].Title != "Ana available" {
		t.Errorf("unexpected slot item %+v", items[0])
	}
}

func TestMerge_TiesKeepEventsFirstAndDropDuplicates(t *testing.T) {
	events := []models.Event{
		{ID: "e1", Start: day(19, 9, 0), End: day(19, 10, 0)},
		{ID: "e1", Start: day(19, 9, 0), End: day(19, 10, 0)},
	}
	slot := models.AvailabilitySlot{DayOfWeek: 1, UserID: "t1", Start: models.Clock{Hour: 9}, End: models.Clock{Hour: 10}}
	slots := []models.AvailabilitySlot{slot, slot}

	items := Merge(events, slots, day(19, 0, 0))

	if len(items) != 2 {
		t.Fatalf("expected duplicates dropped, got %d items", len(items))
	}
	if items[0].ID != "e1" || !items[1].IsSlot {
		t.Errorf("expected event before slot on tie, got %s, %s", items[0].ID, items[1].ID)
	}
}

func TestFilter(t *testing.T) {
	items := []Item{
		{ID: "past-event", Start: day(18, 9, 0)},
		{ID: "slot", IsSlot: true, Start: day(19, 9, 0)},
		{ID: "future-event", Start: day(20, 9, 0)},
	}
	now := day(19, 8, 0)

	tests := []struct {
		tab  Tab
		want []string
	}{
		{TabAll, []string{"past-event", "slot", "future-event"}},
		{TabEvents, []string{"past-event", "future-event"}},
		{TabSlots, []string{"slot"}},
		{TabUpcoming, []string{"slot", "future-event"}},
	}

	for _, tt := range tests {
		got := Filter(items, tt.tab, now)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d items, want %d", tt.tab, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("%s: item %d = %s, want %s", tt.tab, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestPaginate(t *testing.T) {
	items := make([]Item, 45)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("e%d", i)}
	}

	page := Paginate(items, 0)
	if len(page.Items) != PageSize || !page.HasMore || page.Total != 45 {
		t.Errorf("first page: %d items, more=%v total=%d", len(page.Items), page.HasMore, page.Total)
	}

	count := NextDisplayCount(NextDisplayCount(page.DisplayCount))
	if count != 60 {
		t.Fatalf("expected display count 60, got %d", count)
	}

	page = Paginate(items, count)
	if len(page.Items) != 45 || page.HasMore {
		t.Errorf("last page: %d items, more=%v", len(page.Items), page.HasMore)
	}
}

func TestParseTab(t *testing.T) {
	if tab, err := ParseTab(""); err != nil || tab != TabAll {
		t.Errorf("empty tab: got %q, %v", tab, err)
	}
	if tab, err := ParseTab("upcoming"); err != nil || tab != TabUpcoming {
		t.Errorf("upcoming: got %q, %v", tab, err)
	}
	if _, err := ParseTab("bogus"); err == nil {
		t.Error("expected error for unknown tab")
	}
}
