package system

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger returns a sugared logger that writes through t, so launcher
// log lines show up attached to the failing test instead of on stderr.
func NewTestLogger(t zaptest.TestingT) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}
