// Package api exposes map sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/county-overlay/internal/colormap"
	"github.com/mohammed-shakir/county-overlay/internal/core/model"
	"github.com/mohammed-shakir/county-overlay/internal/session"
	"github.com/mohammed-shakir/county-overlay/internal/upstream"
	"github.com/mohammed-shakir/county-overlay/internal/viewport"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	reg         *session.Registry
	log         *slog.Logger
	defaultMode colormap.Mode
}

func New(reg *session.Registry, defaultMode colormap.Mode, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{reg: reg, log: log, defaultMode: defaultMode}
}

// Register mounts the session routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.createSession)
	r.Post("/refresh", h.refreshAll)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Delete("/", h.deleteSession)
		r.Get("/fill", h.fill)
		r.Post("/click", h.click)
		r.Delete("/selection", h.deselect)
		r.Post("/viewport", h.viewport)
		r.Put("/mode", h.setMode)
		r.Post("/refresh", h.refresh)
		r.Get("/series", h.series)
	})
}

type createRequest struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Center  *model.LngLat  `json:"center"`
	Zoom    *float64       `json:"zoom"`
	Bearing float64        `json:"bearing"`
	Mode    *colormap.Mode `json:"mode"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cam := viewport.DefaultCamera()
	if req.Width > 0 {
		cam.Width = req.Width
	}
	if req.Height > 0 {
		cam.Height = req.Height
	}
	if req.Center != nil {
		cam.Center = *req.Center
	}
	if req.Zoom != nil {
		cam.Zoom = *req.Zoom
	}
	cam.Bearing = req.Bearing
	mode := h.defaultMode
	if req.Mode != nil {
		mode = *req.Mode
	}

	s, err := h.reg.Create(session.Options{Camera: cam, Mode: mode})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *session.Session) (session.Snapshot, error) {
		return s.Snapshot(ctx)
	})
}

func (h *Handler) fill(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.Fill()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	etag := `"` + f.Fingerprint() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) click(w http.ResponseWriter, r *http.Request) {
	var p model.Point
	if err := decode(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *session.Session) (session.Snapshot, error) {
		return s.Click(ctx, p)
	})
}

func (h *Handler) deselect(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *session.Session) (session.Snapshot, error) {
		return s.Deselect(ctx)
	})
}

type viewportRequest struct {
	Pan *struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	} `json:"pan"`
	Zoom    *float64     `json:"zoom"`
	Around  *model.Point `json:"around"`
	Bearing *float64     `json:"bearing"`
	Width   *float64     `json:"width"`
	Height  *float64     `json:"height"`
}

func (h *Handler) viewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Width == nil) != (req.Height == nil) {
		writeError(w, http.StatusBadRequest, "width and height go together")
		return
	}
	if req.Pan == nil && req.Zoom == nil && req.Bearing == nil && req.Width == nil {
		writeError(w, http.StatusBadRequest, "expected one of pan, zoom, bearing or width/height")
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *session.Session) (snap session.Snapshot, err error) {
		if req.Width != nil {
			if snap, err = s.Resize(ctx, *req.Width, *req.Height); err != nil {
				return snap, err
			}
		}
		if req.Pan != nil {
			if snap, err = s.Pan(ctx, req.Pan.DX, req.Pan.DY); err != nil {
				return snap, err
			}
		}
		if req.Zoom != nil {
			if snap, err = s.Zoom(ctx, *req.Zoom, req.Around); err != nil {
				return snap, err
			}
		}
		if req.Bearing != nil {
			snap, err = s.Rotate(ctx, *req.Bearing)
		}
		return snap, err
	})
}

func (h *Handler) setMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *colormap.Mode `json:"mode"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Mode == nil {
		writeError(w, http.StatusBadRequest, "mode is required")
		return
	}
	h.withSession(w, r, func(ctx context.Context, s *session.Session) (session.Snapshot, error) {
		return s.SetMode(ctx, *req.Mode)
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (h *Handler) refreshAll(w http.ResponseWriter, r *http.Request) {
	n := h.reg.RefreshAll(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]int{"sessions": n})
}

func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	series, err := s.Series(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if series == nil {
		series = model.Series{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": series})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.reg.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) (session.Snapshot, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := fn(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, upstream.ErrStatus), errors.Is(err, upstream.ErrMalformed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errEmptyBody = errors.New("request body is empty")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decode(w, r, v); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

func matchETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || strings.TrimPrefix(part, "W/") == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
