// Package availability converts availability records as the store returns
// them into the canonical models.AvailabilityMap used by every view.
package availability

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"calendar-service/internal/models"
	"calendar-service/pkg/sl"
)

// ServiceSlot is a slot exactly as the store serves it.
type ServiceSlot struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Category  string `json:"category,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

type ServiceUser struct {
	Name  string        `json:"name"`
	Role  string        `json:"role,omitempty"`
	Slots []ServiceSlot `json:"slots"`
}

type ServiceMap map[string]ServiceUser

// DefaultRole is assigned to users whose record carries no role.
// Admin roles are never inferred.
const DefaultRole = models.RoleTeacher

var ErrInvalidClock = errors.New("invalid clock")

// ParseClock parses "HH:MM". A missing minute component reads as "00",
// and a trailing seconds component ("HH:MM:SS") is ignored.
func ParseClock(s string) (models.Clock, error) {
	const op = "availability.ParseClock"

	s = strings.TrimSpace(s)
	if s == "" {
		return models.Clock{}, fmt.Errorf("%s: empty value: %w", op, ErrInvalidClock)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return models.Clock{}, fmt.Errorf("%s: %q: %w", op, s, ErrInvalidClock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return models.Clock{}, fmt.Errorf("%s: hour in %q: %w", op, s, ErrInvalidClock)
	}

	minute := 0
	if len(parts) > 1 && parts[1] != "" {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return models.Clock{}, fmt.Errorf("%s: minute in %q: %w", op, s, ErrInvalidClock)
		}
	}

	return models.Clock{Hour: hour, Minute: minute}, nil
}

// ConvertSlot validates and converts one slot. userID and userName are used
// when the slot itself does not carry them.
func ConvertSlot(s ServiceSlot, userID, userName string) (models.AvailabilitySlot, error) {
	const op = "availability.ConvertSlot"

	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: day_of_week %d out of range", op, s.DayOfWeek)
	}

	start, err := ParseClock(s.StartTime)
	if err != nil {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: start_time: %w", op, err)
	}

	end, err := ParseClock(s.EndTime)
	if err != nil {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: end_time: %w", op, err)
	}

	if end.Minutes() <= start.Minutes() {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: end %s not after start %s", op, end, start)
	}

	slot := models.AvailabilitySlot{
		DayOfWeek: s.DayOfWeek,
		Start:     start,
		End:       end,
		Category:  s.Category,
		UserID:    s.UserID,
		UserName:  s.UserName,
	}
	if slot.UserID == "" {
		slot.UserID = userID
	}
	if slot.UserName == "" {
		slot.UserName = userName
	}

	return slot, nil
}

// Convert never fails: malformed slots are logged and skipped, and users
// left without slots are dropped from the result.
func Convert(src ServiceMap, log *slog.Logger) models.AvailabilityMap {
	const op = "availability.Convert"

	out := make(models.AvailabilityMap, len(src))
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("op", op))

	for userID, user := range src {
		role := user.Role
		if role == "" {
			role = DefaultRole
		}

		slots := make([]models.AvailabilitySlot, 0, len(user.Slots))
		for i, raw := range user.Slots {
			slot, err := ConvertSlot(raw, userID, user.Name)
			if err != nil {
				log.Warn("skipping malformed availability slot",
					slog.String("user_id", userID),
					slog.Int("index", i),
					sl.Err(err),
				)
				continue
			}
			slots = append(slots, slot)
		}

		if len(slots) == 0 {
			continue
		}

		out[userID] = models.UserAvailability{
			Name:  user.Name,
			Role:  role,
			Slots: slots,
		}
	}

	return out
}
