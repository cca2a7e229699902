// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every connection opened by OpenSQLite.
var sqlitePragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

// OpenSQLite opens the database file at path, creating its directory if
// needed. The pool holds a single connection so writes are serialized
// in-process instead of failing with SQLITE_BUSY.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := ensureSQLiteDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("operation", "open sqlite").
			With("path", path).
			Wrap(err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, oops.Code("STORE_OPEN_FAILED").
				With("operation", "apply pragma").
				With("pragma", pragma).
				Wrap(err)
		}
	}
	return db, nil
}

// ensureSQLiteDir creates the directory holding the database file. path may
// carry a sqlite:// scheme and query parameters.
func ensureSQLiteDir(path string) error {
	file := strings.TrimPrefix(path, "sqlite://")
	file, _, _ = strings.Cut(file, "?")
	dir := filepath.Dir(file)
	if file == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return oops.Code("STORE_OPEN_FAILED").
			With("operation", "create database directory").
			With("path", path).
			Wrap(err)
	}
	return nil
}
