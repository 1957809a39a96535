// Package state holds the per-view calendar state. A Store has a single
// writer (the resolution cycle) and any number of snapshot subscribers.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"calendar-service/internal/calendar/resolver"
	"calendar-service/internal/calendar/roles"
	"calendar-service/internal/models"
)

var (
	ErrClosed       = errors.New("view closed")
	ErrInvalidLayer = errors.New("invalid layer")
)

// State is an immutable snapshot. Slices and maps in it are replaced, never
// modified in place, so snapshots can be shared freely.
type State struct {
	Criteria      models.FilterCriteria  `json:"criteria"`
	Events        []models.Event         `json:"events"`
	Availability  models.AvailabilityMap `json:"availability"`
	IsLoading     bool                   `json:"is_loading"`
	Fallback      bool                   `json:"fallback"`
	Notices       []resolver.Notice      `json:"notices,omitempty"`
	Generation    uint64                 `json:"generation"`
	ActiveLayers  []models.Layer         `json:"active_layers"`
	SelectedUsers []models.SelectedUser  `json:"selected_users"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type Store struct {
	mu      sync.RWMutex
	state   State
	closed  bool
	subs    map[int]chan State
	nextSub int
	clock   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: State{
			Events:        []models.Event{},
			Availability:  models.AvailabilityMap{},
			ActiveLayers:  []models.Layer{models.LayerTeachers, models.LayerStudents, models.LayerAdmins, models.LayerSuperadmins},
			SelectedUsers: []models.SelectedUser{},
		},
		subs:  make(map[int]chan State),
		clock: time.Now,
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Begin starts a resolution cycle and returns its generation token.
// Any cycle begun earlier becomes stale.
func (s *Store) Begin(c models.FilterCriteria) (uint64, error) {
	const op = "state.Store.Begin"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	s.state.Generation++
	s.state.Criteria = c
	s.state.IsLoading = true
	s.publish()

	return s.state.Generation, nil
}

// BeginRefresh starts a cycle for the criteria already in place. The
// criteria are read under the same lock that takes the generation, so a
// Begin racing with it is never overtaken by the older criteria.
func (s *Store) BeginRefresh() (uint64, models.FilterCriteria, error) {
	const op = "state.Store.BeginRefresh"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, models.FilterCriteria{}, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	s.state.Generation++
	s.state.IsLoading = true
	s.publish()

	return s.state.Generation, s.state.Criteria, nil
}

// Commit applies a cycle's result. It reports false, leaving the state
// untouched, when a newer cycle has begun or the view was closed.
func (s *Store) Commit(gen uint64, res *resolver.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.state.Generation {
		return false
	}

	s.state.IsLoading = false
	s.state.Events = []models.Event{}
	s.state.Availability = models.AvailabilityMap{}
	s.state.Notices = nil
	s.state.Fallback = false

	if res != nil {
		if res.Events != nil {
			s.state.Events = res.Events
		}
		if res.Availability != nil {
			s.state.Availability = res.Availability
		}
		s.state.Notices = res.Notices
		s.state.Fallback = res.Fallback
	}

	s.state.UpdatedAt = s.clock()
	s.publish()
	return true
}

// Abort ends a cycle without a result, keeping the previous data.
func (s *Store) Abort(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.state.Generation {
		return false
	}
	s.state.IsLoading = false
	s.publish()
	return true
}

// SetLayers replaces the active layers. Selected users whose layer is no
// longer active are removed with it.
func (s *Store) SetLayers(layers []models.Layer) error {
	const op = "state.Store.SetLayers"

	active := make([]models.Layer, 0, len(layers))
	seen := make(map[models.Layer]bool, len(layers))
	for _, l := range layers {
		if !l.Valid() {
			return fmt.Errorf("%s: %q: %w", op, l, ErrInvalidLayer)
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		active = append(active, l)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	selected := make([]models.SelectedUser, 0, len(s.state.SelectedUsers))
	for _, u := range s.state.SelectedUsers {
		if seen[u.Layer] {
			selected = append(selected, u)
		}
	}

	s.state.ActiveLayers = active
	s.state.SelectedUsers = selected
	s.publish()
	return nil
}

// SetSelectedUsers replaces the selection. Users in inactive layers are
// dropped; an unknown layer is an error.
func (s *Store) SetSelectedUsers(users []models.SelectedUser) error {
	const op = "state.Store.SetSelectedUsers"

	for _, u := range users {
		if !u.Layer.Valid() {
			return fmt.Errorf("%s: user %q layer %q: %w", op, u.ID, u.Layer, ErrInvalidLayer)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	active := make(map[models.Layer]bool, len(s.state.ActiveLayers))
	for _, l := range s.state.ActiveLayers {
		active[l] = true
	}

	selected := make([]models.SelectedUser, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if !active[u.Layer] || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		selected = append(selected, u)
	}

	s.state.SelectedUsers = selected
	s.publish()
	return nil
}

// Subscribe delivers the current snapshot and every later one. A slow
// subscriber only ever misses intermediate snapshots, never the latest.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close unmounts the view: pending cycles can no longer commit and all
// subscriptions end.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// publish must be called with s.mu held.
func (s *Store) publish() {
	for _, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s.state:
			default:
			}
		}
	}
}

// VisibleAvailability narrows the availability map to active layers. Within
// a layer that has selected users, only those users are shown.
func VisibleAvailability(st State) models.AvailabilityMap {
	active := make(map[models.Layer]bool, len(st.ActiveLayers))
	for _, l := range st.ActiveLayers {
		active[l] = true
	}

	selectedByLayer := make(map[models.Layer]map[string]bool)
	for _, u := range st.SelectedUsers {
		if selectedByLayer[u.Layer] == nil {
			selectedByLayer[u.Layer] = make(map[string]bool)
		}
		selectedByLayer[u.Layer][u.ID] = true
	}

	out := make(models.AvailabilityMap, len(st.Availability))
	for id, ua := range st.Availability {
		layer := roles.LayerFor(ua.Role)
		if !active[layer] {
			continue
		}
		if sel, ok := selectedByLayer[layer]; ok && !sel[id] {
			continue
		}
		out[id] = ua
	}
	return out
}

func VisibleSlots(st State) []models.AvailabilitySlot {
	return VisibleAvailability(st).Slots()
}
