package ics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"calendar-service/pkg/handlers/slogdiscard"
	"calendar-service/pkg/response"
)

const calendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

type stubExporter struct {
	ref time.Time
	err error
}

func (s *stubExporter) ICS(viewID string, ref time.Time) (string, error) {
	s.ref = ref
	if s.err != nil {
		return "", s.err
	}
	return calendar, nil
}

func TestICSHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "ok", wantCode: http.StatusOK},
		{name: "bad date", query: "?date=soon", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "unknown view", err: response.ErrViewNotFound, wantCode: http.StatusNotFound, wantErr: string(response.VIEW_NOT_FOUND)},
		{name: "failure", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Get("/views/{view}/calendar.ics", New(slogdiscard.NewDiscardLogger(), &stubExporter{err: tt.err}))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/views/v1/calendar.ics"+tt.query, nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantCode, rr.Body.String())
			}

			if tt.wantErr != "" {
				if !strings.Contains(rr.Body.String(), `"code":"`+tt.wantErr+`"`) {
					t.Errorf("body %s missing code %s", rr.Body.String(), tt.wantErr)
				}
				return
			}

			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
				t.Errorf("content type = %q", ct)
			}
			if rr.Body.String() != calendar {
				t.Errorf("body = %q", rr.Body.String())
			}
		})
	}
}

func TestICSHandler_PassesDate(t *testing.T) {
	exporter := &stubExporter{}
	router := chi.NewRouter()
	router.Get("/views/{view}/calendar.ics", New(slogdiscard.NewDiscardLogger(), exporter))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/views/v1/calendar.ics?date=2026-10-19T00:00:00Z", nil))

	if !exporter.ref.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ref = %v", exporter.ref)
	}
}
