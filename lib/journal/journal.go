// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/bureau-roles/lib/changeroles"
	"github.com/bureau-foundation/bureau-roles/lib/codec"
	"github.com/bureau-foundation/bureau-roles/lib/ref"
	"github.com/bureau-foundation/bureau-roles/lib/schema"
	"github.com/bureau-foundation/bureau-roles/lib/sqlitepool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS saves (
	id           TEXT PRIMARY KEY,
	room_id      TEXT NOT NULL,
	role         TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL,
	outcome      TEXT NOT NULL,
	attempted    INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	first_error  TEXT NOT NULL DEFAULT '',
	plan_hash    TEXT NOT NULL,
	plan         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS saves_by_room ON saves (room_id, started_at DESC);
`

// Outcome values stored per save.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// planDomainKey separates plan fingerprints from any other BLAKE3 use.
var planDomainKey = blake3.Sum256([]byte("bureau-roles.journal.plan.v1"))

// Config configures Open.
type Config struct {
	// Path is the database file. Its directory must exist.
	Path string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Journal is a SQLite-backed save history. Safe for concurrent use.
type Journal struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

var _ changeroles.Recorder = (*Journal)(nil)

// Open opens or creates the journal database.
func Open(config Config) (*Journal, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("journal: Path is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   config.Path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schemaSQL, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.pool.Close()
}

// Change is one planned assignment and, once recorded, its result.
type Change struct {
	UserID ref.UserID  `cbor:"user" json:"user_id"`
	Role   schema.Role `cbor:"role" json:"role"`
	// Error is the failure message; empty on success.
	Error string `cbor:"error,omitempty" json:"error,omitempty"`
}

// Entry is one recorded save.
type Entry struct {
	ID          string      `json:"id"`
	RoomID      ref.RoomID  `json:"room_id"`
	Role        schema.Role `json:"role"`
	RequesterID ref.UserID  `json:"requester_id"`
	Started     time.Time   `json:"started"`
	Finished    time.Time   `json:"finished"`
	Outcome     string      `json:"outcome"`
	Attempted   int         `json:"attempted"`
	Failed      int         `json:"failed"`
	FirstError  string      `json:"first_error,omitempty"`
	PlanHash    string      `json:"plan_hash"`
	Changes     []Change    `json:"changes"`
}

// RecordSave stores report and logs the new entry's ID.
func (j *Journal) RecordSave(ctx context.Context, report changeroles.SaveReport) error {
	changes := make([]Change, len(report.Outcomes))
	for i, outcome := range report.Outcomes {
		changes[i] = Change{UserID: outcome.UserID, Role: outcome.Role}
		if outcome.Err != nil {
			changes[i].Error = outcome.Err.Error()
		}
	}
	planHash, err := fingerprint(report.RoomID, report.Role, changes)
	if err != nil {
		return err
	}
	plan, err := codec.Marshal(changes)
	if err != nil {
		return fmt.Errorf("journal: encoding plan: %w", err)
	}

	outcome := OutcomeSuccess
	firstError := ""
	errs := report.Errors()
	if len(errs) > 0 {
		outcome = OutcomeFailure
		firstError = errs[0].Error()
	}

	id := uuid.NewString()
	err = j.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO saves (id, room_id, role, requester_id, started_at, finished_at,
			                   outcome, attempted, failed, first_error, plan_hash, plan)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				id,
				report.RoomID.String(),
				string(report.Role),
				report.RequesterID.String(),
				report.Started.UnixMilli(),
				report.Finished.UnixMilli(),
				outcome,
				len(report.Outcomes),
				len(errs),
				firstError,
				planHash,
				plan,
			}})
	})
	if err != nil {
		return fmt.Errorf("journal: recording save: %w", err)
	}

	j.logger.Debug("save recorded",
		"save_id", id,
		"room_id", report.RoomID,
		"outcome", outcome,
		"plan_hash", planHash,
	)
	return nil
}

// List returns up to limit entries for roomID, newest first. A limit
// of zero or less means no limit.
func (j *Journal) List(ctx context.Context, roomID ref.RoomID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	var entries []Entry
	err := j.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, room_id, role, requester_id, started_at, finished_at,
			       outcome, attempted, failed, first_error, plan_hash, plan
			FROM saves
			WHERE room_id = ?
			ORDER BY started_at DESC, id
			LIMIT ?`,
			&sqlitex.ExecOptions{
				Args: []any{roomID.String(), limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entry, err := scanEntry(stmt)
					if err != nil {
						return err
					}
					entries = append(entries, entry)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("journal: listing saves for %s: %w", roomID, err)
	}
	return entries, nil
}

func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	var entry Entry
	var err error
	entry.ID = stmt.ColumnText(0)
	if entry.RoomID, err = ref.ParseRoomID(stmt.ColumnText(1)); err != nil {
		return Entry{}, fmt.Errorf("save %s: %w", entry.ID, err)
	}
	entry.Role = schema.Role(stmt.ColumnText(2))
	if entry.RequesterID, err = ref.ParseUserID(stmt.ColumnText(3)); err != nil {
		return Entry{}, fmt.Errorf("save %s: %w", entry.ID, err)
	}
	entry.Started = time.UnixMilli(stmt.ColumnInt64(4)).UTC()
	entry.Finished = time.UnixMilli(stmt.ColumnInt64(5)).UTC()
	entry.Outcome = stmt.ColumnText(6)
	entry.Attempted = stmt.ColumnInt(7)
	entry.Failed = stmt.ColumnInt(8)
	entry.FirstError = stmt.ColumnText(9)
	entry.PlanHash = stmt.ColumnText(10)

	plan := make([]byte, stmt.ColumnLen(11))
	stmt.ColumnBytes(11, plan)
	if err := codec.Unmarshal(plan, &entry.Changes); err != nil {
		return Entry{}, fmt.Errorf("save %s: decoding plan: %w", entry.ID, err)
	}
	return entry, nil
}

// planKey is the part of a save that identifies its intent.
type planKey struct {
	RoomID  ref.RoomID  `cbor:"room"`
	Role    schema.Role `cbor:"role"`
	Changes []Change    `cbor:"changes"`
}

// fingerprint hashes the intended changes, ignoring their results.
func fingerprint(roomID ref.RoomID, role schema.Role, changes []Change) (string, error) {
	intent := make([]Change, len(changes))
	for i, change := range changes {
		intent[i] = Change{UserID: change.UserID, Role: change.Role}
	}
	encoded, err := codec.Marshal(planKey{RoomID: roomID, Role: role, Changes: intent})
	if err != nil {
		return "", fmt.Errorf("journal: encoding plan key: %w", err)
	}
	hasher, err := blake3.NewKeyed(planDomainKey[:])
	if err != nil {
		return "", fmt.Errorf("journal: BLAKE3 keyed hash initialization failed: %w", err)
	}
	hasher.Write(encoded)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
