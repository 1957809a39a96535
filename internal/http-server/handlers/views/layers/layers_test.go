package layers

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
	got []string
	err error
}

func (s *stubSetter) SetLayers(viewID string, layers []string) (*api.StateResponse, error) {
	s.got = layers
	if s.err != nil {
		return nil, s.err
	}
	active := make([]models.Layer, 0, len(layers))
	for _, l := range layers {
		active = append(active, models.Layer(l))
	}
	return &api.StateResponse{ViewID: viewID, ActiveLayers: active}, nil
}

func TestLayersHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "ok", body: `{"layers":["teachers","students"]}`, wantCode: http.StatusOK},
		{name: "bad json", body: `{"layers":`, wantCode: http.StatusBadRequest, wantErr: string(response.BAD_REQUEST)},
		{name: "unknown layer", body: `{"layers":["parents"]}`, err: fmt.Errorf("svc: %w", response.ErrInvalidLayer), wantCode: http.StatusBadRequest, wantErr: string(response.INVALID_FILTER)},
		{name: "unknown view", body: `{}`, err: response.ErrViewNotFound, wantCode: http.StatusNotFound, wantErr: string(response.VIEW_NOT_FOUND)},
		{name: "closed view", body: `{}`, err: fmt.Errorf("svc: %w", response.ErrViewClosed), wantCode: http.StatusGone, wantErr: string(response.VIEW_CLOSED)},
		{name: "failure", body: `{}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: string(response.FAILED_REQUEST)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &stubSetter{err: tt.err}
			router := chi.NewRouter()
			router.Put("/views/{view}/layers", New(slogdiscard.NewDiscardLogger(), setter))

			req := httptest.NewRequest(http.MethodPut, "/views/v1/layers", strings.NewReader(tt.body))
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
			if tt.wantErr == "" && (resp.State == nil || len(resp.State.ActiveLayers) != 2) {
				t.Errorf("unexpected state %+v", resp.State)
			}
		})
	}
}
