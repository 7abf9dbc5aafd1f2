/*
Package rest exposes the speedtracker operations over HTTP.

All routes are versioned, so with a prefix of "speedtracker" a test of the
"homepage" profile is started with GET /speedtracker/v1/test?profile=homepage.
The configured base url must point at the same versioned root for pingbacks
to reach the service.
*/
package rest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/controller"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

type Service struct {
	Port           int
	Prefix         string
	AllowedOrigins []string
	Environment    speedtracker.Environment

	// internal settings
	app        *gimlet.APIApp
	controller *controller.Controller
	metrics    *serviceMetrics
	handler    http.Handler
	mu         sync.Mutex
}

func (s *Service) Validate() error {
	if s.Environment == nil {
		return errors.New("must specify an environment")
	}

	if s.controller == nil {
		ctrl, err := controller.New(s.Environment.GetConf(), s.Environment.GetRunner(), s.Environment.GetDatabase())
		if err != nil {
			return errors.Wrap(err, "problem building controller")
		}
		s.controller = ctrl
	}

	if s.metrics == nil {
		s.metrics = newServiceMetrics()
	}

	if s.app == nil {
		s.app = gimlet.NewApp()
	}

	if s.Port == 0 {
		s.Port = 3000
	}

	if err := s.app.SetPort(s.Port); err != nil {
		return errors.WithStack(err)
	}

	if s.Prefix != "" {
		s.app.SetPrefix(s.Prefix)
	}

	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}

	return nil
}

// Handler resolves the routes and returns the service's http handler. It
// is built once.
func (s *Service) Handler() (http.Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handler != nil {
		return s.handler, nil
	}
	if s.app == nil || s.controller == nil {
		return nil, errors.New("application is not valid")
	}

	s.addRoutes()

	if err := s.app.Resolve(); err != nil {
		return nil, errors.Wrap(err, "problem resolving routes")
	}

	router, err := s.app.Router()
	if err != nil {
		return nil, errors.Wrap(err, "problem building router")
	}

	s.handler = cors.New(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)

	return s.handler, nil
}

// Start serves the application until the context is canceled.
func (s *Service) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return errors.WithStack(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		grip.Info(message.Fields{
			"message": "starting service",
			"port":    s.Port,
			"prefix":  s.Prefix,
		})
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, "problem running service")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grip.Info("shutting down service")
	return errors.Wrap(srv.Shutdown(shutdownCtx), "problem shutting down service")
}

func (s *Service) addRoutes() {
	s.app.AddRoute("/status").Version(1).Get().Handler(s.statusHandler)
	s.app.AddRoute("/test").Version(1).Get().RouteHandler(makeRunTest(s))
	s.app.AddRoute("/pingback").Version(1).Get().RouteHandler(makeProcessResult(s))
	s.app.AddRoute("/results").Version(1).Get().RouteHandler(makeGetResults(s))
	s.app.AddRoute("/metrics").Version(1).Get().Handler(s.metrics.handler().ServeHTTP)
}
