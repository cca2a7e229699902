// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bruth/bruth/internal/observability"
)

// Route paths.
const (
	PathRegister = "/register"
	PathLogin    = "/login"
	PathVerify   = "/verify"
	PathLogout   = "/logout"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger *slog.Logger
	// Metrics instruments each route when set.
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
}

// NewRouter mounts the handlers on POST routes behind the request ID,
// access log, panic recovery and timeout middleware.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = h.logger
	}

	mux := http.NewServeMux()
	route := func(path string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if opts.Metrics != nil {
			handler = opts.Metrics.Instrument(path, handler)
		}
		mux.Handle(http.MethodPost+" "+path, handler)
	}

	route(PathRegister, h.Register)
	route(PathLogin, h.Login)
	route(PathVerify, h.Verify)
	route(PathLogout, h.Logout)

	return chain(mux,
		withRequestID,
		withAccessLog(logger),
		withRecover(logger),
		withTimeout(opts.RequestTimeout),
	)
}
