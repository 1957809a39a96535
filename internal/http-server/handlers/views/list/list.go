package list

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

type Lister interface {
	List(viewID, tab string, displayCount int, ref time.Time) (*api.ListResponse, error)
}

type Response struct {
	response.Response
	List *api.ListResponse `json:"list,omitempty"`
}

func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")
		tab := r.URL.Query().Get("tab")

		count, err := params.Int(r, "count", 0)
		if err != nil {
			log.Error("invalid count", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		ref, err := params.Date(r, "date")
		if err != nil {
			log.Error("invalid date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		list, err := lister.List(viewID, tab, count, ref)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid tab", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), "unknown tab"))
			return
		}

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to list view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list view"))
			return
		}

		log.Info("List built", slog.Int("items", len(list.Items)), slog.Int("total", list.Total))

		render.JSON(w, r, Response{List: list})
	}
}
