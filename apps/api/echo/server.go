package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
	oauthsvc "github.com/trezcool/kusoma/services/oauth"
)

type (
	// Pinger reports whether the document store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		StudentSvc StudentService
		Issuer     *session.Issuer
		DB         Pinger
		OAuth      oauthsvc.Provider // nil when not configured
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
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
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogError:     true,
			LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
				s.deps.Logger.Debug("request", map[string]interface{}{
					"id":      v.RequestID,
					"method":  v.Method,
					"uri":     v.URI,
					"status":  v.Status,
					"latency": v.Latency.String(),
				})
				return nil
			},
		}))
	}
	// do not recover in TEST mode
	if !conf.TestMode {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", home)

	cookies := cookieFactory{secure: conf.Auth.SecureCookies}
	optSession := sessionMiddleware(s.deps.Issuer, cookies, false)
	reqSession := sessionMiddleware(s.deps.Issuer, cookies, true)

	api := s.app.Group("/api")
	api.GET("/health", s.health)

	registerAuthAPI(api, reqSession, &authApi{
		iss:               s.deps.Issuer,
		oauth:             s.deps.OAuth,
		cookies:           cookies,
		postLoginRedirect: conf.Auth.PostLoginRedirect,
		logger:            s.deps.Logger,
	})
	registerStudentAPI(api, optSession, &studentApi{
		svc:             s.deps.StudentSvc,
		validate:        s.deps.Validate,
		strictOwnership: conf.Auth.StrictOwnership,
	})
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) health(ctx echo.Context) error {
	if err := s.deps.DB.Ping(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kusoma API!")
}
