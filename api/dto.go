package api

import (
	"time"

	"calendar-service/internal/calendar/layout"
	"calendar-service/internal/calendar/listing"
	"calendar-service/internal/models"
)

type ViewResponse struct {
	ViewID string `json:"view_id"`
}

type FilterRequest struct {
	FilterType  string   `json:"filter_type"`
	ExplicitIDs []string `json:"explicit_ids,omitempty"`
	FilterIDs   []string `json:"filter_ids,omitempty"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type StateResponse struct {
	ViewID        string                    `json:"view_id"`
	Criteria      models.FilterCriteria     `json:"criteria"`
	Events        []models.Event            `json:"events"`
	Availability  models.AvailabilityMap    `json:"availability"`
	VisibleSlots  []models.AvailabilitySlot `json:"visible_slots"`
	IsLoading     bool                      `json:"is_loading"`
	Fallback      bool                      `json:"fallback"`
	Notices       []Notice                  `json:"notices"`
	ActiveLayers  []models.Layer            `json:"active_layers"`
	SelectedUsers []models.SelectedUser     `json:"selected_users"`
	Generation    uint64                    `json:"generation"`
	UpdatedAt     *time.Time                `json:"updated_at,omitempty"`
}

type LayersRequest struct {
	Layers []string `json:"layers"`
}

type SelectedUsersRequest struct {
	Users []models.SelectedUser `json:"users"`
}

type ListResponse struct {
	Tab              string         `json:"tab"`
	Items            []listing.Item `json:"items"`
	DisplayCount     int            `json:"display_count"`
	NextDisplayCount int            `json:"next_display_count,omitempty"`
	Total            int            `json:"total"`
	HasMore          bool           `json:"has_more"`
}

type GridResponse struct {
	Mode    string          `json:"mode"`
	Date    string          `json:"date"`
	Columns []layout.Column `json:"columns"`
}

type AvailableResponse struct {
	Hour      int  `json:"hour"`
	Day       int  `json:"day"`
	Available bool `json:"available"`
}

// EventRequest carries RFC 3339 timestamps.
type EventRequest struct {
	Title       string                `json:"title"`
	Start       string                `json:"start"`
	End         string                `json:"end"`
	Description string                `json:"description,omitempty"`
	Location    string                `json:"location,omitempty"`
	Color       string                `json:"color,omitempty"`
	UserID      string                `json:"user_id,omitempty"`
	EventType   string                `json:"event_type,omitempty"`
	Metadata    *models.EventMetadata `json:"metadata,omitempty"`
}
