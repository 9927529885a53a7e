// Package httpapi exposes node state and local control over HTTP.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/node"
	"github.com/diericx/camper/internal/peers"
	"github.com/diericx/camper/internal/sysinfo"
)

// Server serves the REST API for a running node.
type Server struct {
	node         *node.Node
	networkRange string
	log          zerolog.Logger
}

func NewServer(n *node.Node, networkRange string, log zerolog.Logger) *Server {
	return &Server{
		node:         n,
		networkRange: networkRange,
		log:          log,
	}
}

// Router builds the chi router with the API routes mounted under /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/peers", s.getPeers)
		r.Post("/rearcam/position", s.postPosition)
	})

	return r
}

// Start blocks serving the API on the given listen address.
func (s *Server) Start(listen string) error {
	s.log.Info().Str("listen", listen).Msg("HTTP API listening")
	return http.ListenAndServe(listen, s.Router())
}

//---
// Payloads
//---

// StatusPayload is the node snapshot plus host details.
type StatusPayload struct {
	node.Snapshot
	System *sysinfo.SystemInfo `json:"system,omitempty"`
}

// PositionPayload carries a move request for the camera. On a rear camera
// node the move is applied locally; on a hub it is broadcast.
type PositionPayload struct {
	Angle *int `json:"angle"`
}

func (p *PositionPayload) Bind(r *http.Request) error {
	if p.Angle == nil {
		return errors.New("angle is required")
	}
	return nil
}

// PositionResult acknowledges an accepted move request.
type PositionResult struct {
	Status string `json:"status"`
	Angle  int    `json:"angle"`
}

//---
// Views
//---

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.node.Snapshot(r.Context())
	if err != nil {
		render.Render(w, r, ErrUnavailable(err))
		return
	}

	info, err := sysinfo.Collect(s.networkRange)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to collect system info")
		info = nil
	}

	render.JSON(w, r, StatusPayload{Snapshot: snap, System: info})
}

func (s *Server) getPeers(w http.ResponseWriter, r *http.Request) {
	snap, err := s.node.Snapshot(r.Context())
	if err != nil {
		render.Render(w, r, ErrUnavailable(err))
		return
	}

	if snap.Peers == nil {
		snap.Peers = []peers.Record{}
	}
	render.JSON(w, r, snap.Peers)
}

func (s *Server) postPosition(w http.ResponseWriter, r *http.Request) {
	data := &PositionPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := s.node.Command(r.Context(), *data.Angle); err != nil {
		switch {
		case errors.Is(err, actuator.ErrInvalidTarget):
			render.Render(w, r, ErrInvalidRequest(err))
		case errors.Is(err, node.ErrStopped):
			render.Render(w, r, ErrUnavailable(err))
		default:
			render.Render(w, r, ErrRender(err))
		}
		return
	}

	render.JSON(w, r, PositionResult{Status: "ok", Angle: *data.Angle})
}

//---
// Error responses
//---

// ErrResponse is the JSON body rendered for failed requests.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		ErrorText:      err.Error(),
	}
}

func ErrUnavailable(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Node unavailable",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Error processing request",
		ErrorText:      err.Error(),
	}
}
