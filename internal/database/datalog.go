package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"flyhard/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS payload_log (
	id           TEXT PRIMARY KEY,
	client_id    INTEGER NOT NULL,
	pair_id      TEXT NOT NULL DEFAULT '',
	sequence_key INTEGER NOT NULL,
	payload      BLOB,
	logged_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payload_log_client ON payload_log(client_id, logged_at);
`

// Store persists delivered relay payloads to SQLite. All writes funnel
// through a single goroutine to avoid SQLite write contention; reads go
// straight to the pool.
type Store struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	log          *zap.Logger

	mu     sync.RWMutex
	closed bool

	// retryDelay is the pause before the single write retry. Shortened in
	// tests.
	retryDelay time.Duration
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens (creating if needed) the datalog database at path and
// starts the writer goroutine.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open datalog database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize datalog schema: %w", err)
	}

	s := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		log:          log,
		retryDelay:   5 * time.Second,
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				s.log.Warn("datalog write failed, retrying", zap.Error(err))
				time.Sleep(s.retryDelay)
				err = op.operation(s.db)
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("datalog store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return fmt.Errorf("datalog store is shutting down")
	}
}

// RecordPayload writes one datalog row. The store assigns the row id and
// timestamp.
func (s *Store) RecordPayload(ctx context.Context, record *types.PayloadRecord) error {
	record.ID = uuid.New().String()
	record.LoggedAt = time.Now().UTC()

	return s.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO payload_log (id, client_id, pair_id, sequence_key, payload, logged_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.ClientID,
			record.PairID,
			record.SequenceKey,
			record.Payload,
			record.LoggedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payload record: %w", err)
		}
		return nil
	})
}

// RecentPayloads returns up to limit rows, newest first.
func (s *Store) RecentPayloads(ctx context.Context, limit int) ([]*types.PayloadRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, pair_id, sequence_key, payload, logged_at
		FROM payload_log
		ORDER BY logged_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payload log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.PayloadRecord
	for rows.Next() {
		rec := &types.PayloadRecord{}
		if err := rows.Scan(&rec.ID, &rec.ClientID, &rec.PairID,
			&rec.SequenceKey, &rec.Payload, &rec.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payload record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close stops the writer goroutine and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}
