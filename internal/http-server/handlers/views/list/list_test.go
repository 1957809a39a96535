package list

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"calendar-service/api"
	"calendar-service/pkg/handlers/slogdiscard"
	"calendar-service/pkg/response"
)

type stubLister struct {
	called bool
	tab    string
	count  int
	ref    time.Time
	err    error
}

func (s *stubLister) List(viewID, tab string, displayCount int, ref time.Time) (*api.ListResponse, error) {
	s.called = true
	s.tab, s.count, s.ref = tab, displayCount, ref
	if s.err != nil {
		return nil, s.err
	}
	return &api.ListResponse{Tab: tab, DisplayCount: displayCount, Total: 3}, nil
}

func serve(lister Lister, query string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/views/{view}/list", New(slogdiscard.NewDiscardLogger(), lister))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/views/v1/list"+query, nil))
	return rr
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantCode   int
		wantErr    string
		wantCalled bool
	}{
		{name: "ok", query: "?tab=events&count=10", wantCode: http.StatusOK, wantCalled: true},
		{name: "bad count", query: "?count=ten", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "bad date", query: "?date=19-10-2026", wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY)},
		{name: "unknown tab", query: "?tab=x", err: fmt.Errorf("svc: %w", response.ErrBadRequest), wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_QUERY), wantCalled: true},
		{name: "unknown view", err: response.ErrViewNotFound, wantCode: http.StatusNotFound, wantErr: string(response.VIEW_NOT_FOUND), wantCalled: true},
		{name: "failure", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST), wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &stubLister{err: tt.err}
			rr := serve(lister, tt.query)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if lister.called != tt.wantCalled {
				t.Errorf("lister called = %v, want %v", lister.called, tt.wantCalled)
			}

			var resp Response
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if resp.Code != tt.wantErr {
				t.Errorf("error code = %q, want %q", resp.Code, tt.wantErr)
			}
			if tt.wantErr == "" && (resp.List == nil || resp.List.Tab != "events" || resp.List.DisplayCount != 10) {
				t.Errorf("unexpected list %+v", resp.List)
			}
		})
	}
}

func TestListHandler_PassesDate(t *testing.T) {
	lister := &stubLister{}
	serve(lister, "?date=2026-10-19T08:00:00Z")

	if want := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC); !lister.ref.Equal(want) {
		t.Errorf("ref = %v, want %v", lister.ref, want)
	}
	if lister.count != 0 {
		t.Errorf("missing count should pass 0, got %d", lister.count)
	}
}
