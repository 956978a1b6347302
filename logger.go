// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvtrace

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger used by pipelines without their own.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// This must be called before the first conversion.
func SetLogger(l *zap.Logger) {
	logger = l
}
