package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/hub"
	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/config"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("request")
	})
}

// NewHandler builds the HTTP handler over a running hub.
func NewHandler(cfg config.Config, h *hub.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(requestIDMiddleware)
	router.Use(recovererMiddleware)

	registerHealthRoutes(router)

	router.Post(cfg.CallbackPath(), h.CallbackHandler())

	router.Method(http.MethodPost, "/v1/discover", handler(func(w http.ResponseWriter, r *http.Request) error {
		h.Discover()
		return writeJSON(w, http.StatusAccepted, map[string]any{"status": "searching"})
	}))

	router.Method(http.MethodGet, "/v1/devices", handler(func(w http.ResponseWriter, r *http.Request) error {
		ids := h.Devices()
		devices := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			host, _ := h.WhereIs(id)
			devices = append(devices, map[string]any{"device_id": id, "host": host})
		}
		return writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
	}))

	router.Method(http.MethodGet, "/v1/devices/{id}", handler(func(w http.ResponseWriter, r *http.Request) error {
		id := chi.URLParam(r, "id")
		var keys []string
		if raw := r.URL.Query().Get("keys"); raw != "" {
			keys = strings.Split(raw, ",")
		}
		state, err := h.Lookup(r.Context(), id, keys...)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, state)
	}))

	router.Method(http.MethodPost, "/v1/devices/{id}/commands/{command}", handler(func(w http.ResponseWriter, r *http.Request) error {
		if err := dispatchCommand(r, h); err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))

	router.Get("/v1/events", eventsHandler(h))

	return router
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", handler(func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "musiccast-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
}

// commandRequest carries the union of command arguments; each command
// reads only its own.
type commandRequest struct {
	Power  string `json:"power"`
	Input  string `json:"input"`
	Volume int    `json:"volume"`
	Step   int    `json:"step"`

	URL   string     `json:"url"`
	Track *hub.Track `json:"track"`
	Meta  string     `json:"meta"`

	Items []queueItemRequest `json:"items"`
}

type queueItemRequest struct {
	URL   string     `json:"url"`
	Track *hub.Track `json:"track"`
}

func (q queueItemRequest) item() hub.QueueItem {
	item := hub.QueueItem{URL: q.URL}
	if q.Track != nil {
		item.Meta = *q.Track
	}
	return item
}

func metaValue(track *hub.Track, meta string) any {
	if track != nil {
		return track
	}
	if meta != "" {
		return meta
	}
	return nil
}

func dispatchCommand(r *http.Request, h *hub.Hub) error {
	id := chi.URLParam(r, "id")
	command := chi.URLParam(r, "command")

	var req commandRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &apperrors.ArgumentError{Argument: "body", Message: "invalid JSON"}
		}
	}

	ctx := r.Context()
	switch command {
	case "playback_play":
		return h.PlaybackPlay(ctx, id)
	case "playback_pause":
		return h.PlaybackPause(ctx, id)
	case "playback_stop":
		return h.PlaybackStop(ctx, id)
	case "playback_next":
		return h.PlaybackNext(ctx, id)
	case "playback_previous":
		return h.PlaybackPrevious(ctx, id)
	case "playback_load":
		return h.PlaybackLoad(ctx, id, req.URL, metaValue(req.Track, req.Meta))
	case "playback_load_next":
		return h.PlaybackLoadNext(ctx, id, req.URL, metaValue(req.Track, req.Meta))
	case "playback_load_queue":
		items := make([]hub.QueueItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, it.item())
		}
		return h.PlaybackLoadQueue(ctx, id, items)
	case "set_power":
		return h.SetPower(ctx, id, req.Power)
	case "set_input":
		return h.SetInput(ctx, id, req.Input)
	case "set_volume":
		return h.SetVolume(ctx, id, req.Volume)
	case "increase_volume":
		return h.IncreaseVolume(ctx, id, req.Step)
	case "decrease_volume":
		return h.DecreaseVolume(ctx, id, req.Step)
	case "mute":
		return h.Mute(ctx, id)
	case "unmute":
		return h.Unmute(ctx, id)
	case "toggle_play_pause":
		return h.TogglePlayPause(ctx, id)
	case "toggle_repeat":
		return h.ToggleRepeat(ctx, id)
	case "toggle_shuffle":
		return h.ToggleShuffle(ctx, id)
	default:
		return &apperrors.ArgumentError{Argument: "command", Message: "unknown command " + command}
	}
}
