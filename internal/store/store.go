// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package store opens the user database and manages its schema.
package store

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)
