// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package api

import "github.com/bruth/bruth/internal/auth"

// RegisterRequest is the POST /register payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the POST /login payload. Login is a username or an email.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// TokenRequest carries a token in the body for /verify and /logout when no
// Authorization header is sent.
type TokenRequest struct {
	Token string `json:"token"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// UserResponse is returned by verify.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

// MessageResponse is the body of errors and of logout.
type MessageResponse struct {
	Message string `json:"message"`
}

func newUserResponse(u *auth.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Verified: u.Verified,
	}
}
