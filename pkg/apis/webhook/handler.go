/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/redhat-appstudio/clerkhook/pkg/metrics"
)

const (
	// Clerk webhook signing secret
	SigningSecretEnv = "CLERK_WEBHOOK_SIGNING_SECRET"

	// UserCreatedPath is the endpoint Clerk delivers user.created events to.
	UserCreatedPath = "/user-created"

	// Clerk payloads are small; 1MB leaves plenty of room.
	DefaultMaxRequestSize int64 = 1024 * 1024

	msgSecretNotSet = "Signing secret not set"
	msgVerifyFailed = "Error verifying webhook"
	msgWebhookOK    = "Webhook received"

	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "requestId"
)

// Config is the handler configuration, resolved once at startup.
type Config struct {
	SigningSecret  string
	MaxRequestSize int64
}

type Handler struct {
	config     Config
	verifier   Verifier
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewHandler builds a Handler. A nil verifier defaults to the Svix verifier,
// a nil dispatcher to an empty Registry.
func NewHandler(config Config, verifier Verifier, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = DefaultMaxRequestSize
	}
	if verifier == nil {
		verifier = NewSvixVerifier()
	}
	if dispatcher == nil {
		dispatcher = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleWebhook verifies one delivery and answers with one of three fixed bodies.
func (h *Handler) HandleWebhook(c *gin.Context) {
	metrics.IncInboundCount()
	zapCommonFields := []zapcore.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("request-id", c.GetString(RequestIDKey)),
	}

	if h.config.SigningSecret == "" {
		h.logger.Error(SigningSecretEnv+" is not set", zapCommonFields...)
		metrics.IncOutcomeCount(metrics.OutcomeSecretMissing)
		c.String(http.StatusInternalServerError, msgSecretNotSet)
		return
	}

	// Verify request size. If larger than limit, the verifier's read will fail.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxRequestSize)
	defer c.Request.Body.Close()

	start := time.Now()
	result := h.verifier.Verify(c.Request, h.config.SigningSecret)
	metrics.AddVerificationTime(time.Since(start).Seconds())

	event, ok := result.Event()
	if !ok {
		// we do not want to expose internal information, so returning generic failure message
		h.logger.Error("error verifying webhook", append(zapCommonFields,
			zap.String("reason", string(result.Reason())),
			zap.Error(result.Err()),
		)...)
		metrics.IncOutcomeCount(metrics.OutcomeVerificationFailed)
		metrics.IncRejectionCount(string(result.Reason()))
		c.String(http.StatusBadRequest, msgVerifyFailed)
		return
	}

	h.logger.Info("received clerk webhook", append(zapCommonFields, event.logFields()...)...)
	if err := h.dispatcher.Dispatch(c.Request.Context(), event); err != nil {
		h.logger.Error("webhook dispatch failed", append(zapCommonFields,
			zap.String("event-type", event.Type),
			zap.Error(err),
		)...)
		metrics.IncDispatchedCount(event.Type, "error")
	} else {
		metrics.IncDispatchedCount(event.Type, "")
	}
	metrics.IncOutcomeCount(metrics.OutcomeVerified)
	c.String(http.StatusOK, msgWebhookOK)
}
