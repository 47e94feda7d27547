package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"mjpeg-relay/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const snapshotContentType = "image/jpeg"

// Handler exposes relay HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the robot and health endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Health)
	r.Get("/health", h.Health)
	r.Route("/robots/{robot_id}", func(r chi.Router) {
		r.Get("/should_stream", h.ShouldStream)
		r.Post("/request_stream", h.RequestStream)
		r.Post("/stop_stream", h.StopStream)
		r.Post("/frame", h.ReceiveFrame)
		r.Get("/snapshot", h.Snapshot)
		r.Get("/stream", h.StreamFrames)
	})
}

// ShouldStream handles GET /robots/{robot_id}/should_stream. Body is a bare JSON boolean.
func (h *Handler) ShouldStream(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.ShouldStream(robotID(r)))
}

// RequestStream handles POST /robots/{robot_id}/request_stream.
func (h *Handler) RequestStream(w http.ResponseWriter, r *http.Request) {
	id := robotID(r)
	streaming := h.svc.RequestStream(id)
	h.log.Info("stream requested", slog.String("robot_id", string(id)))
	h.writeJSON(w, http.StatusOK, streamingResponse{Streaming: streaming})
}

// StopStream handles POST /robots/{robot_id}/stop_stream.
func (h *Handler) StopStream(w http.ResponseWriter, r *http.Request) {
	id := robotID(r)
	streaming := h.svc.StopStream(id)
	h.log.Info("stream stopped", slog.String("robot_id", string(id)))
	h.writeJSON(w, http.StatusOK, streamingResponse{Streaming: streaming})
}

// ReceiveFrame handles POST /robots/{robot_id}/frame. The raw body is the frame.
func (h *Handler) ReceiveFrame(w http.ResponseWriter, r *http.Request) {
	id := robotID(r)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("read frame body failed",
			slog.String("robot_id", string(id)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.svc.ReceiveFrame(id, data)
	h.log.Debug("frame received",
		slog.String("robot_id", string(id)),
		slog.Int("bytes", len(data)))
	if h.metrics != nil {
		h.metrics.ObserveFrame(len(data))
	}
	h.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Snapshot handles GET /robots/{robot_id}/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.svc.LatestFrame(robotID(r))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", snapshotContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", frame.ReceivedAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(frame.Data)
}

// StreamFrames handles GET /robots/{robot_id}/stream as an MJPEG stream that
// runs until the viewer disconnects.
func (h *Handler) StreamFrames(w http.ResponseWriter, r *http.Request) {
	id := robotID(r)
	log := h.log.With(
		slog.String("robot_id", string(id)),
		slog.String("viewer_id", uuid.NewString()))
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", StreamContentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Error("stream not flushable", slog.String("error", err.Error()))
		return
	}

	if h.metrics != nil {
		h.metrics.ViewerConnected()
		defer h.metrics.ViewerDisconnected()
	}
	log.Debug("viewer connected")

	err := h.svc.Stream(r.Context(), id, func(frame []byte) error {
		if err := WriteChunk(w, frame); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil {
			return err
		}
		if h.metrics != nil {
			h.metrics.IncChunksEmitted()
		}
		return nil
	})
	if err != nil {
		log.Debug("viewer write failed", slog.String("error", err.Error()))
		return
	}
	log.Debug("viewer disconnected")
}

// Health handles GET / and GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type streamingResponse struct {
	Streaming bool `json:"streaming"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("write response failed", slog.String("error", err.Error()))
	}
}

func robotID(r *http.Request) RobotID {
	return RobotID(chi.URLParam(r, "robot_id"))
}
