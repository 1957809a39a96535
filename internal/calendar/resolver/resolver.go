// Package resolver turns filter criteria into the events and availability a
// calendar view shows.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"calendar-service/internal/calendar/availability"
	"calendar-service/internal/calendar/roles"
	"calendar-service/internal/models"
	"calendar-service/pkg/sl"
)

type Source interface {
	FetchEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error)
	FetchUserAvailabilityForUsers(ctx context.Context, userIDs []string, roles []string) (availability.ServiceMap, error)
	FetchStaffForCourse(ctx context.Context, courseIDs []string) ([]string, error)
	FetchStaffForSkill(ctx context.Context, skillIDs []string) ([]string, error)
	FetchUsersByRoles(ctx context.Context, roles []string) ([]string, error)
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a non-blocking message for the user, never a failure.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type Result struct {
	Events        []models.Event         `json:"events"`
	Availability  models.AvailabilityMap `json:"availability"`
	TargetUserIDs []string               `json:"target_user_ids,omitempty"`
	Notices       []Notice               `json:"notices,omitempty"`
	// Fallback is set when a fetch failed and the unfiltered event list is shown.
	Fallback bool `json:"fallback"`
}

type Engine struct {
	src Source
	log *slog.Logger
}

func New(src Source, log *slog.Logger) *Engine {
	return &Engine{src: src, log: log}
}

// plan is what a set of criteria resolves to before any event or
// availability data is fetched.
type plan struct {
	query      models.EventQuery
	skipEvents bool

	availabilityUsers []string
	availabilityRoles []string
	fetchAvailability bool

	targets []string
	notices []Notice
}

// Resolve runs one resolution cycle. Fetch failures are recovered inside the
// result; the returned error is only ever the context's.
func (e *Engine) Resolve(ctx context.Context, c models.FilterCriteria) (*Result, error) {
	const op = "resolver.Engine.Resolve"

	log := e.log.With(
		slog.String("op", op),
		slog.String("filter_type", string(c.FilterType)),
	)

	p, err := e.plan(ctx, c)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		log.Error("failed to resolve filter, falling back to all events", sl.Err(err))
		return e.fallback(ctx, log, Notice{Level: NoticeWarning, Message: "Could not apply the filter; showing all events"})
	}

	res := &Result{
		Events:        []models.Event{},
		Availability:  models.AvailabilityMap{},
		TargetUserIDs: p.targets,
		Notices:       p.notices,
	}

	var (
		wg        sync.WaitGroup
		events    []models.Event
		eventsErr error
		avail     availability.ServiceMap
		availErr  error
	)

	if !p.skipEvents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, eventsErr = e.src.FetchEvents(ctx, p.query)
		}()
	}

	if p.fetchAvailability {
		wg.Add(1)
		go func() {
			defer wg.Done()
			avail, availErr = e.src.FetchUserAvailabilityForUsers(ctx, p.availabilityUsers, p.availabilityRoles)
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if availErr != nil {
		log.Error("failed to fetch availability", sl.Err(availErr))
		res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: "Availability could not be loaded"})
	} else if avail != nil {
		res.Availability = availability.Convert(avail, e.log)
	}

	if eventsErr != nil {
		log.Error("failed to fetch filtered events, falling back to all events", sl.Err(eventsErr))
		fb, err := e.fallback(ctx, log, Notice{Level: NoticeWarning, Message: "Filtered events could not be loaded; showing all events"})
		if err != nil {
			return nil, err
		}
		res.Events = fb.Events
		res.Fallback = true
		res.Notices = append(res.Notices, fb.Notices...)
	} else if events != nil {
		res.Events = e.validEvents(log, events)
	}

	log.Debug("filter resolved",
		slog.Int("events", len(res.Events)),
		slog.Int("availability_users", len(res.Availability)),
		slog.Bool("fallback", res.Fallback),
	)

	return res, nil
}

func (e *Engine) plan(ctx context.Context, c models.FilterCriteria) (plan, error) {
	const op = "resolver.Engine.plan"

	ids := UnionIDs(c.ExplicitIDs, c.FilterIDs)
	var p plan

	switch c.FilterType {
	case models.FilterNone:
		return p, nil

	case models.FilterCourse, models.FilterSkill:
		if len(ids) == 0 {
			p.skipEvents = true
			p.notices = append(p.notices, Notice{Level: NoticeInfo, Message: "No " + string(c.FilterType) + " selected"})
			return p, nil
		}

		var staff []string
		var err error
		if c.FilterType == models.FilterCourse {
			staff, err = e.src.FetchStaffForCourse(ctx, ids)
			p.query.CourseIDs = ids
		} else {
			staff, err = e.src.FetchStaffForSkill(ctx, ids)
			p.query.SkillIDs = ids
		}
		if err != nil {
			return p, fmt.Errorf("%s: staff lookup: %w", op, err)
		}

		staff = UnionIDs(staff)
		p.query.UserIDs = staff
		p.targets = staff

		// Courses and skills are never "available"; only their staff are.
		if len(staff) == 0 {
			p.notices = append(p.notices, Notice{Level: NoticeInfo, Message: "No staff found for the selected " + string(c.FilterType)})
			return p, nil
		}
		p.availabilityUsers = staff
		p.fetchAvailability = true
		return p, nil

	case models.FilterTeacher, models.FilterAdmin, models.FilterStaff, models.FilterStudent:
		roleSet := roles.Resolve(c.FilterType)
		users := ids
		broadened := len(users) == 0
		if broadened {
			found, err := e.src.FetchUsersByRoles(ctx, roleSet)
			if err != nil {
				return p, fmt.Errorf("%s: users by role: %w", op, err)
			}
			users = UnionIDs(found)
		}

		p.targets = users
		p.query = models.EventQuery{UserIDs: users, RoleFilter: roleSet}

		if len(users) == 0 {
			p.skipEvents = true
			p.notices = append(p.notices, Notice{Level: NoticeInfo, Message: "No users match the " + string(c.FilterType) + " filter"})
			return p, nil
		}

		if roles.IsStaffFilterType(c.FilterType) {
			p.availabilityUsers = users
			p.fetchAvailability = true
			if broadened {
				p.availabilityRoles = roleSet
			}
		}
		return p, nil

	case models.FilterUnit:
		if len(ids) == 0 {
			p.skipEvents = true
			p.notices = append(p.notices, Notice{Level: NoticeInfo, Message: "No unit selected"})
			return p, nil
		}
		p.query = models.EventQuery{UnitIDs: ids}
		return p, nil

	default:
		return p, fmt.Errorf("%s: unknown filter type %q", op, c.FilterType)
	}
}

func (e *Engine) fallback(ctx context.Context, log *slog.Logger, notice Notice) (*Result, error) {
	const op = "resolver.Engine.fallback"

	res := &Result{
		Events:       []models.Event{},
		Availability: models.AvailabilityMap{},
		Notices:      []Notice{notice},
		Fallback:     true,
	}

	events, err := e.src.FetchEvents(ctx, models.EventQuery{})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		log.Error("fallback refresh failed", sl.Err(err))
		res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: "Events could not be loaded"})
		return res, nil
	}

	res.Events = e.validEvents(log, events)
	return res, nil
}

func (e *Engine) validEvents(log *slog.Logger, events []models.Event) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			log.Warn("skipping invalid event", sl.Err(err))
			continue
		}
		out = append(out, ev)
	}
	return out
}

// UnionIDs merges id lists in first-seen order, dropping blanks and repeats.
func UnionIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
