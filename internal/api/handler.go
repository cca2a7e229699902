// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package api exposes the auth service over JSON/HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/bruth/bruth/internal/auth"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the subset of auth.Service the handlers use.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*auth.Session, error)
	Login(ctx context.Context, login, password string) (*auth.Session, error)
	WhoAmI(ctx context.Context, token string) (*auth.User, error)
	Logout(ctx context.Context, token string) error
}

// Handler serves the auth routes.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default.
func NewHandler(svc Service, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, oops.Code("API_INVALID_DEPENDENCY").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}, nil
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgInvalidBody})
		return
	}

	session, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, registerFailures, err)
		return
	}
	writeSession(w, session)
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgInvalidBody})
		return
	}

	session, err := h.svc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, loginFailures, err)
		return
	}
	writeSession(w, session)
}

// Verify handles POST /verify and returns the token's user.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requestToken(w, r)
	if !ok {
		return
	}

	user, err := h.svc.WhoAmI(r.Context(), token)
	if err != nil {
		h.writeError(w, r, verifyFailures, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requestToken(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), token); err != nil {
		h.writeError(w, r, logoutFailures, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: MsgLoggedOut})
}

// requestToken reads the token from the Authorization header, falling back
// to a JSON body. It writes the 400 response itself when no token is found.
func (h *Handler) requestToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return token, true
	}

	var req TokenRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgInvalidBody})
		return "", false
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		return token, true
	}

	writeJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgMissingToken})
	return "", false
}

// BearerToken extracts the token from an Authorization header value. The
// "Bearer " scheme is optional; a bare token is accepted as is. Any other
// scheme, or a value with inner whitespace, yields "".
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "Bearer") {
		return ""
	}
	if scheme, rest, found := strings.Cut(header, " "); found {
		if !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		header = strings.TrimSpace(rest)
	}
	if strings.ContainsAny(header, " \t") {
		return ""
	}
	return header
}

// decodeBody reads a JSON body into dst. When optional is set an empty body
// leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return oops.Code("API_INVALID_BODY").Wrap(err)
	}
	return nil
}

func writeSession(w http.ResponseWriter, session *auth.Session) {
	w.Header().Set("Authorization", "Bearer "+session.Token)
	writeJSON(w, http.StatusOK, SessionResponse{
		Token: session.Token,
		ID:    session.User.ID.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(body)
}
