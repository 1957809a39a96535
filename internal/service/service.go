package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"calendar-service/api"
	"calendar-service/internal/calendar/icsfeed"
	"calendar-service/internal/calendar/layout"
	"calendar-service/internal/calendar/listing"
	"calendar-service/internal/calendar/resolver"
	"calendar-service/internal/calendar/state"
	"calendar-service/internal/lock"
	"calendar-service/internal/models"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type Resolver interface {
	Resolve(ctx context.Context, c models.FilterCriteria) (*resolver.Result, error)
}

type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) (string, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

type Options struct {
	Grid           layout.Grid
	WeekStart      time.Weekday
	LockTTL        time.Duration
	ResolveTimeout time.Duration
	CalendarName   string
	Now            func() time.Time
}

type Service struct {
	engine Resolver
	events EventStore
	locker lock.Locker
	views  *state.Registry
	log    *slog.Logger
	opts   Options
}

func NewService(engine Resolver, events EventStore, locker lock.Locker, log *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.CalendarName == "" {
		opts.CalendarName = "Calendar"
	}
	if opts.Grid == (layout.Grid{}) {
		opts.Grid = layout.DefaultGrid()
	}

	return &Service{
		engine: engine,
		events: events,
		locker: locker,
		views:  state.NewRegistry(),
		log:    log,
		opts:   opts,
	}
}

// Views

// OpenView mounts a view and loads it with no filter applied.
func (s *Service) OpenView(ctx context.Context) (*api.StateResponse, error) {
	const op = "service.OpenView"

	id, store := s.views.Open()
	if err := s.resolve(ctx, store, models.FilterCriteria{}); err != nil {
		s.views.Close(id)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stateResponse(id, store.Snapshot()), nil
}

func (s *Service) CloseView(id string) error {
	const op = "service.CloseView"

	if !s.views.Close(id) {
		return fmt.Errorf("%s: %w", op, response.ErrViewNotFound)
	}
	return nil
}

// CloseAll unmounts every view, ending all subscriptions.
func (s *Service) CloseAll() {
	s.views.CloseAll()
}

func (s *Service) ApplyFilter(ctx context.Context, viewID string, req *api.FilterRequest) (*api.StateResponse, error) {
	const op = "service.ApplyFilter"

	filterType := models.FilterType(strings.ToLower(strings.TrimSpace(req.FilterType)))
	if !filterType.Valid() {
		return nil, fmt.Errorf("%s: unknown filter type %q: %w", op, req.FilterType, response.ErrBadRequest)
	}

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := models.FilterCriteria{
		FilterType:  filterType,
		ExplicitIDs: req.ExplicitIDs,
		FilterIDs:   req.FilterIDs,
	}
	if err := s.resolve(ctx, store, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stateResponse(viewID, store.Snapshot()), nil
}

// Refresh re-runs a view's current criteria.
func (s *Service) Refresh(ctx context.Context, viewID string) error {
	const op = "service.Refresh"

	store, err := s.view(viewID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	gen, c, err := store.BeginRefresh()
	if err != nil {
		return fmt.Errorf("%s: %w", op, storeErr(err))
	}
	if err := s.run(ctx, store, gen, c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RefreshAll refreshes every open view and reports how many succeeded.
// Views closed mid-refresh are skipped silently.
func (s *Service) RefreshAll(ctx context.Context) int {
	const op = "service.RefreshAll"

	log := s.log.With(slog.String("op", op))

	refreshed := 0
	for _, id := range s.views.IDs() {
		err := s.Refresh(ctx, id)
		switch {
		case err == nil:
			refreshed++
		case errors.Is(err, response.ErrViewNotFound), errors.Is(err, response.ErrViewClosed):
		default:
			log.Error("failed to refresh view", slog.String("view_id", id), sl.Err(err))
		}
	}

	return refreshed
}

func (s *Service) State(viewID string) (*api.StateResponse, error) {
	const op = "service.State"

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stateResponse(viewID, store.Snapshot()), nil
}

// Subscribe streams state snapshots until the view closes or cancel is called.
func (s *Service) Subscribe(viewID string) (<-chan *api.StateResponse, func(), error) {
	const op = "service.Subscribe"

	store, err := s.view(viewID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	src, unsubscribe := store.Subscribe()
	out := make(chan *api.StateResponse)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for st := range src {
			select {
			case out <- stateResponse(viewID, st):
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}

	return out, cancel, nil
}

func (s *Service) SetLayers(viewID string, layers []string) (*api.StateResponse, error) {
	const op = "service.SetLayers"

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	active := make([]models.Layer, 0, len(layers))
	for _, l := range layers {
		active = append(active, models.Layer(l))
	}

	if err := store.SetLayers(active); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	return stateResponse(viewID, store.Snapshot()), nil
}

func (s *Service) SetSelectedUsers(viewID string, users []models.SelectedUser) (*api.StateResponse, error) {
	const op = "service.SetSelectedUsers"

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := store.SetSelectedUsers(users); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	return stateResponse(viewID, store.Snapshot()), nil
}

// Rendering

// List merges the view's events with its visible slots projected from ref.
// A zero ref means now.
func (s *Service) List(viewID, tab string, displayCount int, ref time.Time) (*api.ListResponse, error) {
	const op = "service.List"

	t, err := listing.ParseTab(tab)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, response.ErrBadRequest, err)
	}

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.opts.Now()
	if ref.IsZero() {
		ref = now
	}

	st := store.Snapshot()
	items := listing.Filter(listing.Merge(st.Events, state.VisibleSlots(st), ref), t, now)
	page := listing.Paginate(items, displayCount)

	resp := &api.ListResponse{
		Tab:          string(t),
		Items:        page.Items,
		DisplayCount: page.DisplayCount,
		Total:        page.Total,
		HasMore:      page.HasMore,
	}
	if page.HasMore {
		resp.NextDisplayCount = listing.NextDisplayCount(page.DisplayCount)
	}
	return resp, nil
}

const (
	ModeDay  = "day"
	ModeWeek = "week"
)

func (s *Service) Grid(viewID, mode string, date time.Time) (*api.GridResponse, error) {
	const op = "service.Grid"

	if mode == "" {
		mode = ModeWeek
	}
	if mode != ModeDay && mode != ModeWeek {
		return nil, fmt.Errorf("%s: unknown mode %q: %w", op, mode, response.ErrBadRequest)
	}

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if date.IsZero() {
		date = s.opts.Now()
	}

	st := store.Snapshot()
	slots := state.VisibleSlots(st)

	resp := &api.GridResponse{Mode: mode, Date: date.Format(time.DateOnly)}
	if mode == ModeDay {
		resp.Columns = []layout.Column{s.opts.Grid.Day(date, st.Events, slots)}
	} else {
		resp.Columns = s.opts.Grid.Week(date, s.opts.WeekStart, st.Events, slots)
	}
	return resp, nil
}

// Available reports whether an hour cell on a weekday (0 = Sunday) can be clicked.
func (s *Service) Available(viewID string, hour, day int) (*api.AvailableResponse, error) {
	const op = "service.Available"

	if hour < 0 || hour > 23 || day < 0 || day > 6 {
		return nil, fmt.Errorf("%s: hour %d day %d: %w", op, hour, day, response.ErrBadRequest)
	}

	store, err := s.view(viewID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.AvailableResponse{
		Hour:      hour,
		Day:       day,
		Available: layout.IsTimeAvailable(hour, day, state.VisibleSlots(store.Snapshot())),
	}, nil
}

// ICS exports the same merged sequence List shows, unpaginated.
func (s *Service) ICS(viewID string, ref time.Time) (string, error) {
	const op = "service.ICS"

	store, err := s.view(viewID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := s.opts.Now()
	if ref.IsZero() {
		ref = now
	}

	st := store.Snapshot()
	items := listing.Merge(st.Events, state.VisibleSlots(st), ref)
	return icsfeed.Encode(s.opts.CalendarName, items, now), nil
}

// Events

func (s *Service) CreateEvent(ctx context.Context, req *api.EventRequest) (*models.Event, error) {
	const op = "service.CreateEvent"

	e, err := eventFromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner := e.UserID
	if owner == "" {
		owner = "unassigned"
	}

	err = s.withLock(ctx, "calendar:"+owner, func() error {
		id, err := s.events.CreateEvent(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.RefreshAll(ctx)
	return e, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id string, req *api.EventRequest) (*models.Event, error) {
	const op = "service.UpdateEvent"

	e, err := eventFromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e.ID = id

	err = s.withLock(ctx, "event:"+id, func() error {
		return s.events.UpdateEvent(ctx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.RefreshAll(ctx)
	return e, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	const op = "service.DeleteEvent"

	err := s.withLock(ctx, "event:"+id, func() error {
		return s.events.DeleteEvent(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.RefreshAll(ctx)
	return nil
}

func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	locked, err := s.locker.Lock(ctx, key, s.opts.LockTTL)
	if err != nil {
		return fmt.Errorf("lock error: %w", err)
	}
	if !locked {
		return response.ErrLocked
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn("failed to release lock", slog.String("key", key), sl.Err(err))
		}
	}()

	return fn()
}

func eventFromRequest(req *api.EventRequest) (*models.Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", response.ErrBadRequest)
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", response.ErrBadRequest)
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", response.ErrBadRequest)
	}

	e := &models.Event{
		Title:       req.Title,
		Start:       start,
		End:         end,
		Description: req.Description,
		Location:    req.Location,
		Color:       req.Color,
		UserID:      req.UserID,
		EventType:   req.EventType,
		Metadata:    req.Metadata,
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", response.ErrBadRequest, err)
	}

	return e, nil
}

// Internals

func (s *Service) view(id string) (*state.Store, error) {
	store, ok := s.views.Get(id)
	if !ok {
		return nil, response.ErrViewNotFound
	}
	return store, nil
}

// resolve runs one cycle against store. A result that lost the race to a
// newer cycle is dropped without error.
func (s *Service) resolve(ctx context.Context, store *state.Store, c models.FilterCriteria) error {
	gen, err := store.Begin(c)
	if err != nil {
		return storeErr(err)
	}
	return s.run(ctx, store, gen, c)
}

// run resolves c for generation gen. When the caller goes away the cycle is
// aborted; any other failure, the resolve timeout included, commits an empty
// result so the previous filter's data never shows under the new criteria.
func (s *Service) run(ctx context.Context, store *state.Store, gen uint64, c models.FilterCriteria) error {
	resolveCtx := ctx
	if s.opts.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, s.opts.ResolveTimeout)
		defer cancel()
	}

	res, err := s.engine.Resolve(resolveCtx, c)
	if err != nil {
		if ctx.Err() != nil {
			store.Abort(gen)
			return err
		}

		s.log.Warn("resolution failed, clearing view",
			slog.String("filter_type", string(c.FilterType)),
			slog.Uint64("generation", gen),
			sl.Err(err),
		)
		res = &resolver.Result{
			Events:       []models.Event{},
			Availability: models.AvailabilityMap{},
			Notices: []resolver.Notice{{
				Level:   resolver.NoticeWarning,
				Message: "Calendar data could not be loaded in time",
			}},
		}
	}

	if !store.Commit(gen, res) {
		s.log.Debug("discarded superseded resolution", slog.Uint64("generation", gen))
	}
	return nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, state.ErrClosed):
		return response.ErrViewClosed
	case errors.Is(err, state.ErrInvalidLayer):
		return fmt.Errorf("%w: %w", response.ErrInvalidLayer, err)
	}
	return err
}

func stateResponse(viewID string, st state.State) *api.StateResponse {
	notices := make([]api.Notice, 0, len(st.Notices))
	for _, n := range st.Notices {
		notices = append(notices, api.Notice{Level: string(n.Level), Message: n.Message})
	}

	visible := state.VisibleSlots(st)
	if visible == nil {
		visible = []models.AvailabilitySlot{}
	}

	resp := &api.StateResponse{
		ViewID:        viewID,
		Criteria:      st.Criteria,
		Events:        st.Events,
		Availability:  st.Availability,
		VisibleSlots:  visible,
		IsLoading:     st.IsLoading,
		Fallback:      st.Fallback,
		Notices:       notices,
		ActiveLayers:  st.ActiveLayers,
		SelectedUsers: st.SelectedUsers,
		Generation:    st.Generation,
	}
	if !st.UpdatedAt.IsZero() {
		t := st.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}
