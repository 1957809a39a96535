package layers

import (
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

type LayerSetter interface {
	SetLayers(viewID string, layers []string) (*api.StateResponse, error)
}

type Request struct {
	api.LayersRequest
}

type Response struct {
	response.Response
	State *api.StateResponse `json:"state,omitempty"`
}

func New(log *slog.Logger, setter LayerSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.layers.New"

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

		st, err := setter.SetLayers(viewID, req.Layers)

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
			log.Error("Failed to set layers", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to set layers"))
			return
		}

		log.Info("Layers set", slog.Any("layers", st.ActiveLayers))

		render.JSON(w, r, Response{State: st})
	}
}
