// SPDX-License-Identifier: MIT

// Package store logs offline analysis runs to SQLite: one session row per
// run and one row per frame with the shaped levels and band amplitudes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"spectra/internal/log"

	_ "github.com/mattn/go-sqlite3"
)

var logger = log.For("store")

// Store handles database operations. Connections are opened lazily: a WAL
// write connection that owns the schema and a read-only connection for
// queries.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New returns a Store for the database at dbPath. Nothing is opened until
// the first call that needs a connection.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		// SQLite allows one writer.
		db.SetMaxOpenConns(1)

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		logger.Debugf("opened %s for writing", s.dbPath)
		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		// A read-only open fails on a missing file, so let the write side
		// create the file and schema first.
		if _, err := s.getWriteDB(); err != nil {
			s.readDBErr = err
			return
		}
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records the start of an analysis of source and returns the
// session ID. config may be a string, []byte or any JSON-marshallable value.
func (s *Store) CreateSession(ctx context.Context, source string, sampleRate, fftSize int, config any) (sessionID int64, err error) {
	var configData sql.NullString
	switch c := config.(type) {
	case nil:
	case string:
		configData = sql.NullString{String: c, Valid: true}
	case []byte:
		configData = sql.NullString{String: string(c), Valid: true}
	default:
		p, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("marshaling config: %w", err)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, time.Now().UTC(), source, sampleRate, fftSize, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	logger.Infof("session %d started for %s", sessionID, source)
	return sessionID, nil
}

// AppendFrames stores frames for sessionID in one transaction.
func (s *Store) AppendFrames(ctx context.Context, sessionID int64, frames []FrameRecord) (err error) {
	if len(frames) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	const placeholder = "(?, ?, ?, ?, ?, ?, ?, ?)"
	for start := 0; start < len(frames); start += insertBatchRows {
		batch := frames[start:min(start+insertBatchRows, len(frames))]

		var sb strings.Builder
		sb.WriteString(insertFramesSQL)
		values := make([]any, 0, len(batch)*8)
		for i, f := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			values = append(values,
				sessionID,
				int64(f.Sequence),
				f.Position.Seconds(),
				f.Levels.Bass,
				f.Levels.Mid,
				f.Levels.Treble,
				f.Kick,
				encodeAmplitudes(f.Amplitudes),
			)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting frames: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Sessions lists every stored session with its frame count, oldest first.
func (s *Store) Sessions(ctx context.Context) (sessions []Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartedAt, &sess.Source, &sess.SampleRate, &sess.FFTSize, &config, &sess.Frames); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Frames returns the frames of sessionID in sequence order.
func (s *Store) Frames(ctx context.Context, sessionID int64) (frames []FrameRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectFramesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			f        FrameRecord
			seq      int64
			position float64
			blob     []byte
		)
		if err = rows.Scan(&seq, &position, &f.Levels.Bass, &f.Levels.Mid, &f.Levels.Treble, &f.Kick, &blob); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		f.Sequence = uint64(seq)
		f.Position = time.Duration(math.Round(position * float64(time.Second)))
		if f.Amplitudes, err = decodeAmplitudes(blob); err != nil {
			return nil, fmt.Errorf("frame %d: %w", seq, err)
		}
		frames = append(frames, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames: %w", err)
	}
	return frames, nil
}

// Close closes whichever connections were opened.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error
		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}
		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}
		s.closeErr = errors.Join(writeErr, readErr)
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is deferred after BeginTx; after a successful Commit the
// rollback returns sql.ErrTxDone, which is ignored.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}
