// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package api

import (
	"errors"
	"net/http"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/pkg/errutil"
)

// Public error messages.
const (
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgInvalidToken       = "Invalid/Expired Token"
	MsgUserNotFound       = "User not found"
	MsgAlreadyLoggedOut   = "Already logged out"
	MsgMissingToken       = "Missing token"
	MsgInvalidBody        = "Invalid request body"
	MsgInternal           = "Internal server error"
	MsgLoggedOut          = "Logged out"
)

// failure maps an error kind to a response for one route.
type failure struct {
	status  int
	message string
}

// routeFailures gives each route its own wording for the expected error
// kinds. Invalid input always reports the validation message.
type routeFailures struct {
	conflict     failure
	unauthorized failure
	notFound     failure
}

var (
	registerFailures = routeFailures{
		conflict: failure{http.StatusConflict, MsgUserExists},
	}
	loginFailures = routeFailures{
		unauthorized: failure{http.StatusUnauthorized, MsgInvalidCredentials},
	}
	verifyFailures = routeFailures{
		unauthorized: failure{http.StatusUnauthorized, MsgInvalidToken},
		notFound:     failure{http.StatusNotFound, MsgUserNotFound},
	}
	logoutFailures = routeFailures{
		unauthorized: failure{http.StatusUnauthorized, MsgInvalidToken},
		notFound:     failure{http.StatusConflict, MsgAlreadyLoggedOut},
	}
)

func (f routeFailures) lookup(err error) (failure, bool) {
	var out failure
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return failure{http.StatusBadRequest, err.Error()}, true
	case errors.Is(err, auth.ErrConflict):
		out = f.conflict
	case errors.Is(err, auth.ErrUnauthorized):
		out = f.unauthorized
	case errors.Is(err, auth.ErrNotFound):
		out = f.notFound
	}
	return out, out.status != 0
}

// writeError responds for err. Unexpected errors are logged with their oops
// code and context and reported as a bare 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, routes routeFailures, err error) {
	if f, ok := routes.lookup(err); ok {
		h.logger.DebugContext(r.Context(), "request rejected",
			"path", r.URL.Path,
			"status", f.status,
			"code", errutil.Code(err))
		writeJSON(w, f.status, MessageResponse{Message: f.message})
		return
	}

	errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
	writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: MsgInternal})
}
