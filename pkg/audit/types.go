// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// === Submission lifecycle events ===
	EventSubmissionReceived  EventType = "submission.received"
	EventSubmissionPrepared  EventType = "submission.prepared"
	EventSubmissionSubmitted EventType = "submission.submitted"
	EventSubmissionFailed    EventType = "submission.failed"
	EventSubmissionConflict  EventType = "submission.conflict"

	// === Resource and naming events ===
	EventServiceNameFallback EventType = "service.name_fallback"
	EventResourceCreated     EventType = "resource.created"
	EventResourceConflict    EventType = "resource.conflict"

	// === API events ===
	EventAuthFailure EventType = "auth.failure"
	EventAPIRequest  EventType = "api.request"

	// === System events ===
	EventSystemStartup  EventType = "system.startup"
	EventSystemShutdown EventType = "system.shutdown"
	EventAuditStarted   EventType = "audit.started"
	EventAuditStopped   EventType = "audit.stopped"
	EventAuditDropped   EventType = "audit.dropped"
)

// Severity classifies how urgent an audit event is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single audit record. Events are serialized to JSON when
// written to external sinks, so all fields carry JSON tags.
type Event struct {
	// ID uniquely identifies the event. Filled in by the service if empty.
	ID string `json:"id"`

	// Type is the event type.
	Type EventType `json:"type"`

	// Severity of the event. Derived from the type if empty.
	Severity Severity `json:"severity"`

	// Timestamp of the event. Filled in by the service if zero.
	Timestamp time.Time `json:"timestamp"`

	// Actor describes who triggered the event.
	Actor Actor `json:"actor"`

	// Target describes the object the event is about.
	Target Target `json:"target,omitempty"`

	// Message is a human-readable one-liner.
	Message string `json:"message,omitempty"`

	// Details carries free-form structured context.
	Details map[string]any `json:"details,omitempty"`

	// RequestContext ties the event to the API request that caused it.
	RequestContext *RequestContext `json:"requestContext,omitempty"`
}

// Actor describes the principal that caused an event.
type Actor struct {
	// User is the authenticated subject, or "system" for internal events.
	User string `json:"user"`

	// SourceIP is the remote address of the request, if any.
	SourceIP string `json:"sourceIP,omitempty"`

	// UserAgent of the client, if any.
	UserAgent string `json:"userAgent,omitempty"`
}

// Target identifies the Kubernetes object or submission an event refers to.
type Target struct {
	// Kind of the target, e.g. "Submission", "Service", "ConfigMap".
	Kind string `json:"kind,omitempty"`

	// Name of the target.
	Name string `json:"name,omitempty"`

	// Namespace of the target, if namespaced.
	Namespace string `json:"namespace,omitempty"`
}

// RequestContext carries correlation data for API-triggered events.
type RequestContext struct {
	// CorrelationID groups all events emitted while handling one request.
	CorrelationID string `json:"correlationID,omitempty"`

	// SubmissionID is the submission the request operated on, if known.
	SubmissionID string `json:"submissionID,omitempty"`
}

// SeverityForEventType returns the default severity for an event type.
func SeverityForEventType(t EventType) Severity {
	switch t {
	case EventAuthFailure, EventAuditDropped:
		return SeverityCritical
	case EventSubmissionFailed, EventSubmissionConflict,
		EventServiceNameFallback, EventResourceConflict:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// IsHighVolumeEvent reports whether an event type is expected at high
// rates and therefore a candidate for sampling.
func IsHighVolumeEvent(t EventType) bool {
	return t == EventAPIRequest
}
