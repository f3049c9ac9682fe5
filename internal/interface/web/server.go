package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/application"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// service is the Control Surface: a thin gin router over application.Service.
// Every handler validates/delegates/maps per §4.6 — no business logic lives
// here.
type service struct {
	*gin.Engine
	svc    *application.Service
	clock  ports.Clock
	server *http.Server
}

// NewService builds the Control Surface router. sentryEnabled wires
// getsentry/sentry-go/gin's panic/error reporting middleware when true.
func NewService(svc *application.Service, clock ports.Clock, sentryEnabled bool) *service {
	router := gin.New()
	router.Use(gin.Logger())
	setupMiddleware(router, sentryEnabled)

	s := &service{Engine: router, svc: svc, clock: clock}

	router.GET("/health", s.health)
	router.GET("/api/swap/config", s.config)
	router.POST("/api/swap/prepare", s.prepare)
	router.POST("/api/swap/initiate", s.initiate)
	router.GET("/api/swap/status/:id", s.status)
	router.GET("/api/swap/intermediate/:walletId", s.intermediate)
	router.GET("/api/swap/recovery/:id", s.recoveryStatus)
	router.POST("/api/swap/recovery/:id", s.recover)
	router.GET("/api/swap/memo/:id", s.memo)

	return s
}

// Start serves the Control Surface on addr until Stop is called.
func (s *service) Start(addr string) error {
	s.server = &http.Server{Addr: addr, Handler: s.Engine}
	log.WithField("addr", addr).Info("web: control surface listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: listen: %w", err)
	}
	return nil
}

func (s *service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
