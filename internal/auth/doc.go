// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package auth provides the authentication core for Bruth.
//
// # Domain Types
//
// Users should be created through the CredentialStore, which validates the
// username and email, hashes the password and relies on the repository to
// enforce uniqueness:
//   - NewUser - builds a User with validated fields and a fresh ULID
//   - CredentialStore - creation, lookup and credential verification
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Tokens
//
// A TokenAuthority issues and validates session tokens. Two strategies exist and
// exactly one is selected per deployment:
//   - SignedTokenAuthority - stateless HS256 JWTs carrying subject and expiry
//   - OpaqueTokenAuthority - random tokens held in a TokenTable, revocable
//
// # Services
//
// Service composes the store and an authority into the register, login,
// verify and logout use cases. Errors wrap the sentinels in errors.go so
// callers classify them with errors.Is.
package auth
