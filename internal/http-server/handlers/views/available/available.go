package available

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/internal/http-server/handlers/params"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type AvailabilityChecker interface {
	Available(viewID string, hour, day int) (*api.AvailableResponse, error)
}

type Response struct {
	response.Response
	*api.AvailableResponse
}

func New(log *slog.Logger, checker AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.available.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")

		hour, err := params.Int(r, "hour", -1)
		if err == nil && hour < 0 {
			err = errors.New("hour is required")
		}
		if err != nil {
			log.Error("invalid hour", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		day, err := params.Int(r, "day", -1)
		if err == nil && day < 0 {
			err = errors.New("day is required")
		}
		if err != nil {
			log.Error("invalid day", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		res, err := checker.Available(viewID, hour, day)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("cell out of range", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), "hour must be 0-23 and day 0-6"))
			return
		}

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to check availability", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to check availability"))
			return
		}

		render.JSON(w, r, Response{AvailableResponse: res})
	}
}
