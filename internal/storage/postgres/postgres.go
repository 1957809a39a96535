package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"calendar-service/internal/calendar/availability"
	"calendar-service/internal/models"
	"calendar-service/pkg/response"
)

//go:embed schema.sql
var schema string

// Users without a stored role count as teachers, matching availability.DefaultRole.
const roleExpr = `COALESCE(u.role, '` + availability.DefaultRole + `')`

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate creates any missing tables. The schema is idempotent.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// #### events ####

const eventColumns = `e.event_id, e.title, e.starts_at, e.ends_at, e.description, e.location, e.color,
	e.user_id, e.event_type, e.course_id, e.skill_id, e.unit_id, e.student_ids,
	e.prospect_name, e.prospect_contact, e.extra`

// buildEventsQuery turns q into SQL. Id dimensions are OR-ed together, the
// role filter is AND-ed on top and matches the owner or any attending student.
func buildEventsQuery(q models.EventQuery) (string, []any) {
	const orderBy = " ORDER BY e.starts_at, e.event_id"

	if q.Unfiltered() {
		return "SELECT " + eventColumns + " FROM events e" + orderBy, nil
	}

	var (
		args  []any
		idOr  []string
		where []string
	)

	arg := func(v []string) string {
		args = append(args, pq.Array(v))
		return "$" + strconv.Itoa(len(args))
	}

	if len(q.UserIDs) > 0 {
		p := arg(q.UserIDs)
		idOr = append(idOr, fmt.Sprintf("e.user_id = ANY(%s) OR e.student_ids && %s::text[]", p, p))
	}
	if len(q.CourseIDs) > 0 {
		idOr = append(idOr, "e.course_id = ANY("+arg(q.CourseIDs)+")")
	}
	if len(q.SkillIDs) > 0 {
		idOr = append(idOr, "e.skill_id = ANY("+arg(q.SkillIDs)+")")
	}
	if len(q.UnitIDs) > 0 {
		idOr = append(idOr, "e.unit_id = ANY("+arg(q.UnitIDs)+")")
	}
	if len(idOr) > 0 {
		where = append(where, "("+strings.Join(idOr, " OR ")+")")
	}

	if len(q.RoleFilter) > 0 {
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM users u WHERE %s = ANY(%s) AND (u.user_id = e.user_id OR u.user_id = ANY(e.student_ids)))`,
			roleExpr, arg(q.RoleFilter),
		))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(eventColumns)
	b.WriteString(" FROM events e")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(orderBy)

	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var (
		e                       models.Event
		userID, course, skill   sql.NullString
		unit, prospect, contact sql.NullString
		students                []string
		extra                   []byte
	)

	err := row.Scan(
		&e.ID, &e.Title, &e.Start, &e.End, &e.Description, &e.Location, &e.Color,
		&userID, &e.EventType, &course, &skill, &unit, pq.Array(&students),
		&prospect, &contact, &extra,
	)
	if err != nil {
		return e, err
	}

	e.UserID = userID.String

	var meta models.EventMetadata
	if course.Valid || skill.Valid || unit.Valid || len(students) > 0 {
		meta.Class = &models.ClassDetails{
			CourseID:   course.String,
			SkillID:    skill.String,
			UnitID:     unit.String,
			StudentIDs: students,
		}
	}
	if prospect.Valid || contact.Valid {
		meta.Trial = &models.TrialDetails{ProspectName: prospect.String, ProspectContact: contact.String}
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &meta.Extra); err != nil {
			return e, fmt.Errorf("event %s extra: %w", e.ID, err)
		}
		if len(meta.Extra) == 0 {
			meta.Extra = nil
		}
	}
	if meta.Class != nil || meta.Trial != nil || meta.Extra != nil {
		e.Metadata = &meta
	}

	return e, nil
}

func (s *Storage) FetchEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	const op = "storage.postgres.FetchEvents"

	query, args := buildEventsQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// eventArgs lays e out in column order, starting at event_id.
func eventArgs(e *models.Event) ([]any, error) {
	var (
		class = &models.ClassDetails{}
		trial = &models.TrialDetails{}
		extra = map[string]string{}
	)
	if e.Metadata != nil {
		if e.Metadata.Class != nil {
			class = e.Metadata.Class
		}
		if e.Metadata.Trial != nil {
			trial = e.Metadata.Trial
		}
		if e.Metadata.Extra != nil {
			extra = e.Metadata.Extra
		}
	}

	rawExtra, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	students := class.StudentIDs
	if students == nil {
		students = []string{}
	}

	return []any{
		e.ID, e.Title, e.Start, e.End, e.Description, e.Location, e.Color,
		nullString(e.UserID), e.EventType,
		nullString(class.CourseID), nullString(class.SkillID), nullString(class.UnitID),
		pq.Array(students),
		nullString(trial.ProspectName), nullString(trial.ProspectContact),
		rawExtra,
	}, nil
}

// mapWriteErr translates constraint violations into response sentinels.
func mapWriteErr(err error) error {
	var sqlErr *pq.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	switch sqlErr.Code {
	case "23505":
		return response.ErrConflict
	case "23503":
		return response.ErrNotFound
	case "23514", "22007", "22P02":
		return response.ErrBadRequest
	}
	return err
}

// CreateEvent stores e under a fresh uuid when it has no id yet.
func (s *Storage) CreateEvent(ctx context.Context, e *models.Event) (string, error) {
	const op = "storage.postgres.CreateEvent"

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	args, err := eventArgs(e)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events
		(event_id, title, starts_at, ends_at, description, location, color,
		user_id, event_type, course_id, skill_id, unit_id, student_ids,
		prospect_name, prospect_contact, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		args...,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	return e.ID, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, e *models.Event) error {
	const op = "storage.postgres.UpdateEvent"

	args, err := eventArgs(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET
		title = $2, starts_at = $3, ends_at = $4, description = $5, location = $6, color = $7,
		user_id = $8, event_type = $9, course_id = $10, skill_id = $11, unit_id = $12,
		student_ids = $13, prospect_name = $14, prospect_contact = $15, extra = $16
		WHERE event_id = $1`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteEvent"

	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// #### availability ####

// FetchUserAvailabilityForUsers returns the weekly slots of the given users,
// narrowed to roleSet when it is non-empty. Users without slots are absent.
func (s *Storage) FetchUserAvailabilityForUsers(ctx context.Context, userIDs []string, roleSet []string) (availability.ServiceMap, error) {
	const op = "storage.postgres.FetchUserAvailabilityForUsers"

	out := availability.ServiceMap{}
	if len(userIDs) == 0 {
		return out, nil
	}

	query := `SELECT u.user_id, u.name, COALESCE(u.role, ''),
		s.day_of_week, s.start_time, s.end_time, s.category
		FROM users u
		JOIN availability_slots s ON s.user_id = u.user_id
		WHERE u.user_id = ANY($1)`
	args := []any{pq.Array(userIDs)}
	if len(roleSet) > 0 {
		query += ` AND ` + roleExpr + ` = ANY($2)`
		args = append(args, pq.Array(roleSet))
	}
	query += ` ORDER BY u.user_id, s.day_of_week, s.start_time, s.slot_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, name, role string
			slot               availability.ServiceSlot
		)
		if err := rows.Scan(&userID, &name, &role, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &slot.Category); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		user := out[userID]
		user.Name = name
		user.Role = role
		user.Slots = append(user.Slots, slot)
		out[userID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// #### staff and roles ####

func (s *Storage) FetchStaffForCourse(ctx context.Context, courseIDs []string) ([]string, error) {
	const op = "storage.postgres.FetchStaffForCourse"

	staff, err := s.queryIDs(ctx, `SELECT DISTINCT user_id FROM course_staff WHERE course_id = ANY($1) ORDER BY user_id`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return staff, nil
}

func (s *Storage) FetchStaffForSkill(ctx context.Context, skillIDs []string) ([]string, error) {
	const op = "storage.postgres.FetchStaffForSkill"

	staff, err := s.queryIDs(ctx, `SELECT DISTINCT user_id FROM skill_staff WHERE skill_id = ANY($1) ORDER BY user_id`, skillIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return staff, nil
}

func (s *Storage) FetchUsersByRoles(ctx context.Context, roleSet []string) ([]string, error) {
	const op = "storage.postgres.FetchUsersByRoles"

	users, err := s.queryIDs(ctx, `SELECT u.user_id FROM users u WHERE `+roleExpr+` = ANY($1) ORDER BY u.user_id`, roleSet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// queryIDs runs a single-column id query keyed by one text array.
// An empty key list matches nothing.
func (s *Storage) queryIDs(ctx context.Context, query string, keys []string) ([]string, error) {
	ids := []string{}
	if len(keys) == 0 {
		return ids, nil
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
