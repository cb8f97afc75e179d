// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with the settings every
// bureau-roles store shares.
//
// It is a thin layer over zombiezen.com/go/sqlite/sqlitex.Pool: each
// connection gets WAL journaling, synchronous=NORMAL, a five second
// busy timeout, and then the caller's OnConnect hook (typically schema
// creation). Callers write SQL directly with sqlitex.Execute.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      path,
//	    OnConnect: func(conn *sqlite.Conn) error { return sqlitex.ExecuteScript(conn, schema, nil) },
//	})
//	...
//	err = pool.WithConn(ctx, func(conn *sqlite.Conn) error { ... })
//
// Connections are not safe for concurrent use; each goroutine takes
// its own.
package sqlitepool
