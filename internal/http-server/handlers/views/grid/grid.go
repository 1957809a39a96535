package grid

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/internal/http-server/handlers/params"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type GridBuilder interface {
	Grid(viewID, mode string, date time.Time) (*api.GridResponse, error)
}

type Response struct {
	response.Response
	Grid *api.GridResponse `json:"grid,omitempty"`
}

func New(log *slog.Logger, builder GridBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.grid.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")

		date, err := params.Date(r, "date")
		if err != nil {
			log.Error("invalid date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		grid, err := builder.Grid(viewID, r.URL.Query().Get("mode"), date)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid mode", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), "mode must be day or week"))
			return
		}

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to build grid", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to build grid"))
			return
		}

		render.JSON(w, r, Response{Grid: grid})
	}
}
