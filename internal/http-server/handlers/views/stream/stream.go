package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"calendar-service/api"
	"calendar-service/pkg/response"
	"calendar-service/pkg/sl"
)

const keepAlive = 15 * time.Second

type StateSubscriber interface {
	Subscribe(viewID string) (<-chan *api.StateResponse, func(), error)
}

// New streams state snapshots as server-sent events until the client
// disconnects or the view is closed.
func New(log *slog.Logger, subscriber StateSubscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.views.stream.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		viewID := chi.URLParam(r, "view")

		flusher, ok := w.(http.Flusher)
		if !ok {
			log.Error("streaming unsupported")
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "streaming unsupported"))
			return
		}

		states, cancel, err := subscriber.Subscribe(viewID)

		if errors.Is(err, response.ErrViewNotFound) {
			log.Error("view not found", slog.String("view_id", viewID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.VIEW_NOT_FOUND), "view not found"))
			return
		}

		if err != nil {
			log.Error("Failed to subscribe", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to subscribe"))
			return
		}
		defer cancel()

		// The server write timeout would otherwise cut the stream.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			log.Debug("write deadline not cleared", sl.Err(err))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		log.Info("Stream opened", slog.String("view_id", viewID))

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Info("Stream closed by client")
				return

			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()

			case st, ok := <-states:
				if !ok {
					fmt.Fprint(w, "event: closed\ndata: {}\n\n")
					flusher.Flush()
					log.Info("Stream ended, view closed")
					return
				}

				data, err := json.Marshal(st)
				if err != nil {
					log.Error("Failed to encode state", sl.Err(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", st.Generation, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
