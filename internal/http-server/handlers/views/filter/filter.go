package filter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type FilterApplier interface {
	ApplyFilter(ctx context.Context, viewID string, req *api.FilterRequest) (*api.StateResponse, error)
}

type Request struct {
	api.FilterRequest
}

type Response struct {
	response.Response
	State *api.StateResponse `json:"state,omitempty"`
}

func New(log *slog.Logger, applier FilterApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.filter.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		st, err := applier.ApplyFilter(r.Context(), viewID, &req.FilterRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid filter", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_FILTER), "unknown filter type"))
			return
		}

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if errors.Is(err, response.ErrViewClosed) {
			log.Error("view closed", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusGone)
			render.JSON(w, r, response.Error(string(response.VIEW_CLOSED), "view closed"))
			return
		}

		if err != nil {
			log.Error("Failed to apply filter", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to apply filter"))
			return
		}

		log.Info("Filter applied",
			slog.Int("events", len(st.Events)),
			slog.Int("availability_users", len(st.Availability)),
			slog.Bool("fallback", st.Fallback),
		)

		render.JSON(w, r, Response{State: st})
	}
}
