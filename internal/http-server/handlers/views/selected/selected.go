package selected

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/internal/models"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type SelectionSetter interface {
	SetSelectedUsers(viewID string, users []models.SelectedUser) (*api.StateResponse, error)
}

type Request struct {
	api.SelectedUsersRequest
}

type Response struct {
	response.Response
	State *api.StateResponse `json:"state,omitempty"`
}

func New(log *slog.Logger, setter SelectionSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.selected.New"

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

		for _, u := range req.Users {
			if u.ID == "" {
				log.Error("user id is empty")
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "user id is required"))
				return
			}
		}

		st, err := setter.SetSelectedUsers(viewID, req.Users)

		if errors.Is(err, response.ErrInvalidLayer) {
			log.Error("invalid layer", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_FILTER), "unknown layer"))
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
			log.Error("Failed to set selected users", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to set selected users"))
			return
		}

		log.Info("Selection set", slog.Int("selected", len(st.SelectedUsers)))

		render.JSON(w, r, Response{State: st})
	}
}
