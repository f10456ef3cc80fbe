/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError is the error payload every launcher endpoint returns. Code is a
// stable machine-readable discriminator; Error is for humans.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// respondError terminates the request with the standard error body. Every
// error helper goes through it so all endpoints fail with the same shape.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIError{Error: message, Code: code})
}

// RespondOK sends a 200 with the given payload.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a 201 with the given payload.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// RespondBadRequest rejects malformed input with a 400.
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondBadRequestWithDetails rejects invalid input with a 400 that carries
// the offending value in Details.
func RespondBadRequestWithDetails(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:   message,
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

// RespondUnauthorized sends a 401 with the standard message.
func RespondUnauthorized(c *gin.Context) {
	RespondUnauthorizedWithMessage(c, "")
}

// RespondUnauthorizedWithMessage sends a 401 naming the reason, e.g. an
// expired or malformed token. An empty message falls back to the standard
// one.
func RespondUnauthorizedWithMessage(c *gin.Context, message string) {
	if message == "" {
		message = "user not authenticated"
	}
	respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondNotFound sends a 404 naming the missing resource.
func RespondNotFound(c *gin.Context, resourceType, resourceName string) {
	respondError(c, http.StatusNotFound, "NOT_FOUND",
		fmt.Sprintf("%s not found: %s", resourceType, resourceName))
}

// RespondConflict sends a 409 when the request collides with current state,
// e.g. a reserved configuration property is set or a resource name is
// already taken.
func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondTooManyRequests sends a 429 when a caller has exhausted its rate
// budget.
func RespondTooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "rate limit exceeded, please try again later"
	}
	respondError(c, http.StatusTooManyRequests, "RATE_LIMITED", message)
}

// RespondInternalError sends a 500. The full error goes to the log; the
// client only learns which operation failed.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw("Failed to "+operation, "error", err)
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to "+operation)
}

// RespondServiceUnavailable sends a 503 naming the backend that is not
// reachable or not configured.
func RespondServiceUnavailable(c *gin.Context, service string) {
	respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
		"service unavailable: "+service)
}
