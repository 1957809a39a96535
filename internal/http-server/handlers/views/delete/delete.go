package delete

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type ViewCloser interface {
	CloseView(id string) error
}

func New(log *slog.Logger, closer ViewCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "view")

		err := closer.CloseView(id)

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to close view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to close view"))
			return
		}

		log.Info("View closed", slog.String("view_id", id))

		w.WriteHeader(http.StatusNoContent)
	}
}
