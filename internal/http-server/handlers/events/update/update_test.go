package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"calendar-service/api"
	"calendar-service/internal/models"
	"calendar-service/pkg/handlers/slogdiscard"
	"calendar-service/pkg/response"
)

type stubUpdater struct {
	id  string
	err error
}

func (s *stubUpdater) UpdateEvent(_ context.Context, id string, req *api.EventRequest) (*models.Event, error) {
	s.id = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.Event{ID: id, Title: req.Title}, nil
}

func TestUpdateHandler(t *testing.T) {
	const body = `{"title":"Lesson","start":"2026-10-19T09:00:00Z","end":"2026-10-19T10:00:00Z"}`

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "updated", body: body, wantCode: http.StatusOK},
		{name: "bad json", body: `{"title":`, wantCode: http.StatusBadRequest, wantErr: string(response.BAD_REQUEST)},
		{name: "invalid", body: body, err: fmt.Errorf("start after end: %w", response.ErrBadRequest), wantCode: http.StatusBadRequest, wantErr: string(response.BAD_REQUEST)},
		{name: "locked", body: body, err: fmt.Errorf("svc: %w", response.ErrLocked), wantCode: http.StatusLocked, wantErr: string(response.LOCKED)},
		{name: "missing", body: body, err: response.ErrNotFound, wantCode: http.StatusNotFound, wantErr: string(response.NOT_FOUND)},
		{name: "failure", body: body, err: fmt.Errorf("db down"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updater := &stubUpdater{err: tt.err}
			router := chi.NewRouter()
			router.Put("/events/{id}", New(slogdiscard.NewDiscardLogger(), updater))

			req := httptest.NewRequest(http.MethodPut, "/events/e1", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantCode, rr.Body.String())
			}

			var resp Response
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if resp.Code != tt.wantErr {
				t.Errorf("error code = %q, want %q", resp.Code, tt.wantErr)
			}
			if tt.wantErr == "" {
				if updater.id != "e1" || resp.Event == nil || resp.Event.Title != "Lesson" {
					t.Errorf("unexpected event %+v for id %q", resp.Event, updater.id)
				}
			}
		})
	}
}
