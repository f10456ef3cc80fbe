// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package system

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReqLoggerKey is the gin context key holding the request-scoped logger.
const ReqLoggerKey = "reqLogger"

// SetRequestLogger stores log as the request-scoped logger on c. The
// correlation middleware calls this once per request after stamping the
// correlation ID.
func SetRequestLogger(c *gin.Context, log *zap.SugaredLogger) {
	if c == nil || log == nil {
		return
	}
	c.Set(ReqLoggerKey, log)
}

// RequestLogger returns the request-scoped logger stored on c, or fallback
// when the request carries none.
func RequestLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok := v.(*zap.SugaredLogger); ok {
			return l
		}
	}
	return fallback
}

// CallerLogger returns log with the authenticated principal attached when
// the request carries one. Anonymous requests get log back unchanged.
func CallerLogger(c *gin.Context, log *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil || log == nil {
		return log
	}
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(string); ok && user != "" {
			return log.With("user", user)
		}
	}
	return log
}
