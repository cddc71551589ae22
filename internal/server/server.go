// Package server is the HTTP front door: it owns session identity,
// input validation and the JSON surface; all reasoning happens in the
// pipeline.
package server

import (
	_ "embed"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rango-productions/turbotalk/config"
	"github.com/rango-productions/turbotalk/internal/conversation"
	"github.com/rango-productions/turbotalk/internal/pipeline"
	"github.com/rango-productions/turbotalk/internal/telemetry"
)

const sessionCookie = "session_id"

//go:embed index.html
var indexHTML string

// Server wires the store and pipeline behind the HTTP routes.
type Server struct {
	store     *conversation.Store
	pipeline  *pipeline.Pipeline
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func New(store *conversation.Store, pl *pipeline.Pipeline, tele *telemetry.Telemetry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{store: store, pipeline: pl, telemetry: tele, logger: logger}
}

// Echo builds the configured echo instance. Split from Run so tests can
// drive the routes without a listener.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(s.withSession)

	e.GET("/", s.index)
	e.POST("/chat", s.chat)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// Run serves until the listener fails.
func (s *Server) Run(cfg *config.Config) error {
	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Printf("listening on %s", addr)
	return s.Echo().Start(addr)
}

// withSession guarantees every request carries an opaque session ID,
// allocating and setting the cookie on first contact.
func (s *Server) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			id := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
			})
			c.Set(sessionCookie, id)
			s.logger.Printf("new session %s", shortID(id))
		} else {
			c.Set(sessionCookie, cookie.Value)
		}
		return next(c)
	}
}

func (s *Server) index(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

// errorHandler logs failure detail but keeps 500 bodies generic so no
// internal state leaks to clients.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "An error occurred. Please try again."
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if code != http.StatusInternalServerError && he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s: %v", code, req.Method, req.URL.Path, err)
	if code >= http.StatusInternalServerError {
		s.telemetry.CountRequest("error")
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
