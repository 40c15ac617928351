/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertDocSnapshotSQL = `INSERT INTO doc_snapshots(ts, label, record_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestDocSnapshotSQL = `SELECT ts, record_blob FROM doc_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listDocSnapshotsSQL = `SELECT ts, label, record_blob FROM doc_snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneDocSnapshotsSQL = `DELETE FROM doc_snapshots WHERE id NOT IN (
	SELECT id FROM doc_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// SnapshotRetention caps how many persisted snapshots a scenario keeps.
const SnapshotRetention = 50

// DocSnapshot is one persisted serialization of the full scenario record.
type DocSnapshot struct {
	TS    time.Time
	Label string
	Blob  []byte
}

// SaveDocSnapshot persists a serialized scenario record with a timestamp and
// optional label. It opens the scenario's index database if needed.
func SaveDocSnapshot(ctx context.Context, sh *ScenarioHandle, label string, record []byte, ts time.Time) error {
	if sh == nil {
		return errors.New("nil ScenarioHandle")
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertDocSnapshotSQL, ts.UTC().Format(time.RFC3339Nano), label, record)
	return err
}

// CommitDocSnapshot persists a snapshot and prunes the table to the
// retention cap in one step, so the save path cannot grow the table without
// bound.
func CommitDocSnapshot(ctx context.Context, sh *ScenarioHandle, label string, record []byte, ts time.Time) error {
	if err := SaveDocSnapshot(ctx, sh, label, record, ts); err != nil {
		return err
	}
	_, err := PruneDocSnapshots(ctx, sh, SnapshotRetention)
	return err
}

// LatestDocSnapshot returns the most recent snapshot blob or nil if none.
func LatestDocSnapshot(ctx context.Context, sh *ScenarioHandle) ([]byte, time.Time, error) {
	if sh == nil {
		return nil, time.Time{}, errors.New("nil ScenarioHandle")
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestDocSnapshotSQL).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return blob, time.Time{}, nil // return blob even if ts parse fails
	}
	return blob, ts, nil
}

// ListDocSnapshots returns up to limit most recent snapshots, newest first.
func ListDocSnapshots(ctx context.Context, sh *ScenarioHandle, limit int) ([]DocSnapshot, error) {
	if sh == nil {
		return nil, errors.New("nil ScenarioHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listDocSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []DocSnapshot
	for rows.Next() {
		var tsStr string
		var label sql.NullString
		var blob []byte
		if err := rows.Scan(&tsStr, &label, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, DocSnapshot{TS: ts, Label: label.String, Blob: blob})
	}
	return out, rows.Err()
}

// PruneDocSnapshots keeps at most keepLast snapshots and deletes older ones.
func PruneDocSnapshots(ctx context.Context, sh *ScenarioHandle, keepLast int) (int64, error) {
	if sh == nil {
		return 0, errors.New("nil ScenarioHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneDocSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
