package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type ViewOpener interface {
	OpenView(ctx context.Context) (*api.StateResponse, error)
}

type Response struct {
	response.Response
	View *api.StateResponse `json:"view,omitempty"`
}

func New(log *slog.Logger, opener ViewOpener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		view, err := opener.OpenView(r.Context())
		if err != nil {
			log.Error("Failed to open view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to open view"))
			return
		}

		log.Info("View opened", slog.String("view_id", view.ViewID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{View: view})
	}
}
