/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/redhat-appstudio/clerkhook/pkg/apis/webhook"
)

// Middleware adding request ID to gin context.
// Note that this is a simple unique ID that can be used for debugging purposes.
// Retried Clerk deliveries get a new one; correlate those by message-id instead.
func addRequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(webhook.RequestIDKey, uuid.New().String())
		c.Next()
	}
}
