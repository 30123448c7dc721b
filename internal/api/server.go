// SPDX-License-Identifier: MIT

// Package api provides the HTTP and WebSocket surface of the coordinator.
// Handlers delegate every control decision to the robot package; this
// package only parses, authorizes and serializes.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/config"
	"github.com/teletable/backend/internal/diary"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/robot"
	"github.com/teletable/backend/internal/users"
)

// Server bundles the handler dependencies.
type Server struct {
	cfg        config.Config
	controller *robot.Controller
	bus        *robot.Bus
	nodes      *robot.NodeFetcher
	users      *users.Store
	diaries    *diary.Store
	robotHTTP  *http.Client
	logger     zerolog.Logger
}

// Deps are the collaborators the server needs. Users and Diaries may be
// nil when no database is configured; the corresponding endpoints then
// answer 503.
type Deps struct {
	Config     config.Config
	Controller *robot.Controller
	Bus        *robot.Bus
	Nodes      *robot.NodeFetcher
	Users      *users.Store
	Diaries    *diary.Store
	RobotHTTP  *http.Client
}

// New creates a Server.
func New(deps Deps) *Server {
	client := deps.RobotHTTP
	if client == nil {
		client = &http.Client{Timeout: config.RobotHTTPTimeout}
	}
	return &Server{
		cfg:        deps.Config,
		controller: deps.Controller,
		bus:        deps.Bus,
		nodes:      deps.Nodes,
		users:      deps.Users,
		diaries:    deps.Diaries,
		robotHTTP:  client,
		logger:     log.WithComponent("api"),
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public surface.
	r.Get("/", s.handleRoot)
	r.Get("/status", s.handleStatus)
	r.Get("/diary/all", s.handleDiaryAll)
	r.Handle("/metrics", promhttp.Handler())

	// Credential endpoints get a conservative rate limit.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	// Robot-facing surface, authenticated by the pre-shared API key
	// inside the handlers.
	r.Post("/table/state", s.handleTableState)
	r.Post("/table/event", s.handleTableEvent)
	r.Post("/table/register", s.handleTableRegister)

	// WebSockets authenticate on upgrade.
	r.Get("/ws/robot/control", s.handleRobotControlWS)
	r.Get("/ws/drive/manual", s.handleManualDriveWS)

	// Bearer-authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.JWTSecret))

		r.Get("/me", s.handleMe)
		r.Get("/nodes", s.handleNodes)
		r.Get("/routes", s.handleGetRoutes)
		r.Get("/robot/check", s.handleRobotCheck)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleOperator))
			r.Post("/routes/select", s.handleSelectRoute)
			r.Post("/drive/lock", s.handleAcquireLock)
			r.Delete("/drive/lock", s.handleReleaseLock)
			r.Post("/diary", s.handleDiaryCreate)
		})

		r.Get("/diary", s.handleDiaryGet)
		r.Delete("/diary", s.handleDiaryDelete)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Post("/routes", s.handleAddRoute)
			r.Delete("/routes/{id}", s.handleDeleteRoute)
			r.Post("/routes/optimize", s.handleOptimizeRoutes)
			r.Get("/user", s.handleListUsers)
			r.Post("/user", s.handleUpdateUser)
			r.Delete("/user", s.handleDeleteUser)
		})
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("TeleTable Backend API"))
}
