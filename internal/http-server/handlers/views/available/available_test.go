package available

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"calendar-service/api"
	"calendar-service/pkg/handlers/slogdiscard"
	"calendar-service/pkg/response"
)

type stubChecker struct {
	called bool
	err    error
}

func (s *stubChecker) Available(viewID string, hour, day int) (*api.AvailableResponse, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return &api.AvailableResponse{Hour: hour, Day: day, Available: hour == 9 && day == 1}, nil
}

func TestAvailableHandler(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		err           error
		wantCode      int
		wantErr       string
		wantAvailable bool
	}{
		{name: "available", query: "?hour=9&day=1", wantCode: http.StatusOK, wantAvailable: true},
		{name: "midnight sunday", query: "?hour=0&day=0", wantCode: http.StatusOK},
		{name: "missing hour", query: "?day=1", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "missing day", query: "?hour=9", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "bad hour", query: "?hour=nine&day=1", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "out of range", query: "?hour=24&day=1", err: fmt.Errorf("svc: %w", response.ErrBadRequest), wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "unknown view", query: "?hour=9&day=1", err: response.ErrViewNotFound, wantCode: http.StatusNotFound, wantErr: string(response.VIEW_NOT_FOUND)},
		{name: "failure", query: "?hour=9&day=1", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &stubChecker{err: tt.err}
			router := chi.NewRouter()
			router.Get("/views/{view}/available", New(slogdiscard.NewDiscardLogger(), checker))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/views/v1/available"+tt.query, nil))

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
				if resp.AvailableResponse == nil || resp.Available != tt.wantAvailable {
					t.Errorf("unexpected result %+v", resp.AvailableResponse)
				}
			}
		})
	}
}
