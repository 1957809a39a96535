package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type FilterType string

const (
	FilterNone    FilterType = ""
	FilterCourse  FilterType = "course"
	FilterSkill   FilterType = "skill"
	FilterTeacher FilterType = "teacher"
	FilterStudent FilterType = "student"
	FilterAdmin   FilterType = "admin"
	FilterStaff   FilterType = "staff"
	FilterUnit    FilterType = "unit"
)

func (f FilterType) Valid() bool {
	switch f {
	case FilterNone, FilterCourse, FilterSkill, FilterTeacher, FilterStudent, FilterAdmin, FilterStaff, FilterUnit:
		return true
	default:
		return false
	}
}

const (
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

type Layer string

const (
	LayerTeachers    Layer = "teachers"
	LayerStudents    Layer = "students"
	LayerAdmins      Layer = "admins"
	LayerSuperadmins Layer = "superadmins"
)

func (l Layer) Valid() bool {
	switch l {
	case LayerTeachers, LayerStudents, LayerAdmins, LayerSuperadmins:
		return true
	default:
		return false
	}
}

// FilterCriteria is consumed by exactly one resolution cycle.
// ExplicitIDs come from the user's picks, FilterIDs from the broader
// filter-type selection; both are honoured.
type FilterCriteria struct {
	FilterType  FilterType `json:"filter_type"`
	ExplicitIDs []string   `json:"explicit_ids,omitempty"`
	FilterIDs   []string   `json:"filter_ids,omitempty"`
}

type Event struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Color       string         `json:"color,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	EventType   string         `json:"event_type,omitempty"`
	Metadata    *EventMetadata `json:"metadata,omitempty"`
}

func (e Event) Validate() error {
	if !e.Start.Before(e.End) {
		return fmt.Errorf("event %q: start %s is not before end %s", e.ID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	return nil
}

// EventMetadata carries the structured details known per event type.
// Extra is reserved for fields the store does not model.
type EventMetadata struct {
	Class *ClassDetails     `json:"class,omitempty"`
	Trial *TrialDetails     `json:"trial,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

type ClassDetails struct {
	CourseID   string   `json:"course_id,omitempty"`
	SkillID    string   `json:"skill_id,omitempty"`
	UnitID     string   `json:"unit_id,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"`
}

type TrialDetails struct {
	ProspectName    string `json:"prospect_name,omitempty"`
	ProspectContact string `json:"prospect_contact,omitempty"`
}

// Clock is a wall-clock time of day without a date.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return fmt.Errorf("clock %q: %w", s, err)
	}
	c.Hour, c.Minute = t.Hour(), t.Minute()
	return nil
}

// On places the clock on the calendar day of d, in d's location.
func (c Clock) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, d.Location())
}

// AvailabilitySlot recurs every week on DayOfWeek (0 = Sunday).
type AvailabilitySlot struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     Clock  `json:"start_time"`
	End       Clock  `json:"end_time"`
	Category  string `json:"category,omitempty"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
}

type UserAvailability struct {
	Name  string             `json:"name"`
	Role  string             `json:"role"`
	Slots []AvailabilitySlot `json:"slots"`
}

// AvailabilityMap is keyed by user id. Entries always carry at least one slot.
type AvailabilityMap map[string]UserAvailability

func (m AvailabilityMap) UserIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Slots flattens the map in user id order.
func (m AvailabilityMap) Slots() []AvailabilitySlot {
	var out []AvailabilitySlot
	for _, id := range m.UserIDs() {
		out = append(out, m[id].Slots...)
	}
	return out
}

type SelectedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Layer Layer  `json:"layer"`
}

// EventQuery narrows an event fetch. Empty dimensions are unconstrained;
// non-empty id dimensions match if any of them matches, RoleFilter always applies.
type EventQuery struct {
	UserIDs    []string `json:"user_ids,omitempty"`
	CourseIDs  []string `json:"course_ids,omitempty"`
	SkillIDs   []string `json:"skill_ids,omitempty"`
	UnitIDs    []string `json:"unit_ids,omitempty"`
	RoleFilter []string `json:"role_filter,omitempty"`
}

func (q EventQuery) Unfiltered() bool {
	return len(q.UserIDs) == 0 && len(q.CourseIDs) == 0 && len(q.SkillIDs) == 0 &&
		len(q.UnitIDs) == 0 && len(q.RoleFilter) == 0
}
