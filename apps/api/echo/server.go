package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/church"
	"github.com/conectaebd/backend/core/magazine"
	"github.com/conectaebd/backend/core/material"
	"github.com/conectaebd/backend/core/roster"
	"github.com/conectaebd/backend/core/schedule"
	"github.com/conectaebd/backend/core/user"
	"github.com/conectaebd/backend/services/metrics"
	"github.com/conectaebd/backend/storage/database"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         database.Pinger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc       *user.Service
		ChurchSvc     *church.Service
		MagazineSvc   *magazine.Service
		RosterSvc     *roster.Service
		AttendanceSvc *attendance.Service
		ScheduleSvc   *schedule.Service
		MaterialSvc   *material.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(metrics.Middleware())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/healthz", s.health)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	master := masterMiddleware()
	uploadLimit := middleware.BodyLimit(strconv.FormatInt(conf.Server.MaxUploadSize, 10) + "B")

	registerUserAPI(g, jwt, master, conf, s.deps.UserSvc, s.deps.Validate)
	registerChurchAPI(g, jwt, master, s.deps.ChurchSvc, s.deps.Validate)
	registerMagazineAPI(g, jwt, master, s.deps.MagazineSvc, s.deps.Validate)
	registerRosterAPI(g, jwt, s.deps.RosterSvc, s.deps.Validate)
	registerAttendanceAPI(g, jwt, master, s.deps.AttendanceSvc, s.deps.Validate)
	registerScheduleAPI(g, jwt, s.deps.ScheduleSvc, s.deps.Validate)
	registerMaterialAPI(g, jwt, master, uploadLimit, s.deps.MaterialSvc, s.deps.Validate)
}

func (s *server) health(ctx echo.Context) error {
	if s.deps.DB == nil {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
	took, err := database.Ping(ctx.Request().Context(), s.deps.DB)
	metrics.ObserveDBPing(took)
	if err != nil {
		s.deps.Logger.Warn("health check failed", err)
		return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Start listens on the configured address until the server is shut down.
// Listener failures are sent on Errors.
func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
