/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package logger

import (
	"log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "clerkhook"

// Get builds the process logger. Debug enables debug level output.
func Get(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{"service": serviceName}
	config.EncoderConfig.EncodeTime = utcRFC3339TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	return logger
}

// custom encoder to log timestamp in UTC
func utcRFC3339TimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	zapcore.RFC3339TimeEncoder(t.UTC(), enc)
}
