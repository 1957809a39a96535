package selected

import (
	"encoding/json"
	"errors"
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

type stubSetter struct {
	called bool
	err    error
}

func (s *stubSetter) SetSelectedUsers(viewID string, users []models.SelectedUser) (*api.StateResponse, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return &api.StateResponse{ViewID: viewID, SelectedUsers: users}, nil
}

func TestSelectedHandler(t *testing.T) {
	const one = `{"users":[{"id":"t1","name":"Ann","layer":"teachers"}]}`

	tests := []struct {
		name       string
		body       string
		err        error
		wantCode   int
		wantErr    string
		wantCalled bool
	}{
		{name: "ok", body: one, wantCode: http.StatusOK, wantCalled: true},
		{name: "bad json", body: `{"users":[`, wantCode: http.StatusBadRequest, wantErr: string(response.BAD_REQUEST)},
		{name: "empty id", body: `{"users":[{"id":"","layer":"teachers"}]}`, wantCode: http.StatusBadRequest, wantErr: string(response.BAD_REQUEST)},
		{name: "inactive layer", body: one, err: fmt.Errorf("svc: %w", response.ErrInvalidLayer), wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_FILTER), wantCalled: true},
		{name: "unknown view", body: one, err: response.ErrViewNotFound, wantCode: http.StatusNotFound, wantErr: string(response.VIEW_NOT_FOUND), wantCalled: true},
		{name: "closed view", body: one, err: response.ErrViewClosed, wantCode: http.StatusGone, wantErr: string(response.VIEW_CLOSED), wantCalled: true},
		{name: "failure", body: one, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST), wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &stubSetter{err: tt.err}
			router := chi.NewRouter()
			router.Put("/views/{view}/selected", New(slogdiscard.NewDiscardLogger(), setter))

			req := httptest.NewRequest(http.MethodPut, "/views/v1/selected", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if setter.called != tt.wantCalled {
				t.Errorf("setter called = %v, want %v", setter.called, tt.wantCalled)
			}

			var resp Response
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if resp.Code != tt.wantErr {
				t.Errorf("error code = %q, want %q", resp.Code, tt.wantErr)
			}
			if tt.wantErr == "" {
				if resp.State == nil || len(resp.State.SelectedUsers) != 1 || resp.State.SelectedUsers[0].ID != "t1" {
					t.Errorf("unexpected state %+v", resp.State)
				}
			}
		})
	}
}
