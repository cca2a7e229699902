// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth operation metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// AuthOperations is the counter for service use cases.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bruth_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// TokenValidations is the counter for token validation results.
// Use RegisterMetrics to register this with a Prometheus registry.
var TokenValidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bruth_token_validations_total",
		Help: "Total number of token validations by strategy and result",
	},
	[]string{"strategy", "result"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(TokenValidations)
}

// OutcomeOf maps an operation error to its outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func recordOperation(operation string, err error) {
	AuthOperations.WithLabelValues(operation, OutcomeOf(err)).Inc()
}

func recordValidation(strategy string, err error) {
	result := "valid"
	if err != nil {
		result = OutcomeOf(err)
	}
	TokenValidations.WithLabelValues(strategy, result).Inc()
}
