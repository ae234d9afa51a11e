/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/redhat-appstudio/clerkhook/pkg/apis/webhook"
	"github.com/redhat-appstudio/clerkhook/pkg/logger"
)

var zapLogger *zap.Logger

type ClerkHookServer struct {
	server  *gin.Engine
	handler *webhook.Handler
	host    string
	port    int
}

func init() {
	zapLogger = logger.Get(false)
}

// SetLogger replaces the logger used by servers created afterwards.
func SetLogger(logger *zap.Logger) {
	zapLogger = logger
}

// NewServer builds the webhook server. A nil dispatcher gets a Registry that
// logs user.created events.
func NewServer(host string, port int, config webhook.Config, dispatcher webhook.Dispatcher) (*ClerkHookServer, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	if config.SigningSecret == "" {
		zapLogger.Warn(webhook.SigningSecretEnv + " is not set, every webhook delivery will be refused")
	}
	if dispatcher == nil {
		registry := webhook.NewRegistry()
		registry.Register(webhook.EventTypeUserCreated, webhook.LogUserCreated(zapLogger))
		dispatcher = registry
	}
	handler := webhook.NewHandler(config, webhook.NewSvixVerifier(), dispatcher, zapLogger)

	// comment/uncomment to switch between debug and release mode
	//gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// setting middleware before routes, otherwise it does not work (gin bug)
	r.Use(addRequestId())
	r.Use(ginzap.GinzapWithConfig(zapLogger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		SkipPaths:  []string{"/healthz"},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request-id", c.GetString(webhook.RequestIDKey))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(zapLogger, true))
	r.GET("/", handleHealthz)
	r.GET("/healthz", handleHealthz)
	r.POST(webhook.UserCreatedPath, handler.HandleWebhook)
	return &ClerkHookServer{
		server:  r,
		handler: handler,
		host:    host,
		port:    port,
	}, nil
}

// Address is the host:port the server listens on.
func (s *ClerkHookServer) Address() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Run serves webhooks until ctx is cancelled, then shuts down gracefully.
func (s *ClerkHookServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Address(),
		Handler:           s.server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	zapLogger.Info("running clerk webhook receiver",
		zap.String("address", srv.Addr),
		zap.String("path", webhook.UserCreatedPath),
	)
	defer zapLogger.Sync()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("shutting down clerk webhook receiver")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the http.Handler interface for the webhook server.
func (s *ClerkHookServer) Handler() http.Handler {
	return s.server
}

func handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "healthy")
}
