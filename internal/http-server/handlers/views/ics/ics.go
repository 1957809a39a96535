package ics

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/internal/http-server/handlers/params"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

type Exporter interface {
	ICS(viewID string, ref time.Time) (string, error)
}

func New(log *slog.Logger, exporter Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.ics.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")

		ref, err := params.Date(r, "date")
		if err != nil {
			log.Error("invalid date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_QUERY), err.Error()))
			return
		}

		body, err := exporter.ICS(viewID, ref)

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to export calendar", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to export calendar"))
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, body); err != nil {
			log.Error("Failed to write calendar", sl.Err(err))
		}
	}
}
