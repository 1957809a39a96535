package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/internal/models"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type EventCreator interface {
	CreateEvent(ctx context.Context, req *api.EventRequest) (*models.Event, error)
}

type Request struct {
	api.EventRequest
}

type Response struct {
	response.Response
	Event *models.Event `json:"event,omitempty"`
}

func New(log *slog.Logger, creator EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.events.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		event, err := creator.CreateEvent(r.Context(), &req.EventRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid event", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), err.Error()))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("resource is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "resource is locked"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("event already exists")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "event already exists"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("user not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "user not found"))
			return
		}

		if err != nil {
			log.Error("Failed to create event", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create event"))
			return
		}

		log.Info("Event created", slog.String("event_id", event.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Event: event})
	}
}
