package delete

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"calendar-service/pkg/handlers/slogdiscard"
	"calendar-service/pkg/response"
)

type stubDeleter struct {
	id  string
	err error
}

func (s *stubDeleter) DeleteEvent(_ context.Context, id string) error {
	s.id = id
	return s.err
}

func TestDeleteEventHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "deleted", wantCode: http.StatusNoContent},
		{name: "locked", err: fmt.Errorf("svc: %w", response.ErrLocked), wantCode: http.StatusLocked, wantErr: string(response.LOCKED)},
		{name: "missing", err: response.ErrNotFound, wantCode: http.StatusNotFound, wantErr: string(response.NOT_FOUND)},
		{name: "failure", err: fmt.Errorf("db down"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleter := &stubDeleter{err: tt.err}
			router := chi.NewRouter()
			router.Delete("/events/{id}", New(slogdiscard.NewDiscardLogger(), deleter))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/events/e1", nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if deleter.id != "e1" {
				t.Errorf("deleted %q, want e1", deleter.id)
			}
			if tt.wantErr == "" {
				if rr.Body.Len() != 0 {
					t.Errorf("expected empty body, got %s", rr.Body.String())
				}
				return
			}
			if !strings.Contains(rr.Body.String(), `"code":"`+tt.wantErr+`"`) {
				t.Errorf("body %s missing code %s", rr.Body.String(), tt.wantErr)
			}
		})
	}
}
