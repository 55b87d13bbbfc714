package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

type SessionStatus string

const (
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

// Session is one upload and its latest search results.
type Session struct {
	ID        string
	Status    SessionStatus
	ImagePath string // path in the blob store
	ImageMIME string
	Queries   []string
	// Conversation is the serialisable conversation state as JSON, empty when
	// redo was not requested or the extraction failed.
	Conversation  string
	FeedbackUsed  string
	TotalItems    int
	TotalProducts int
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionResult is written when a pipeline run for a session finishes.
type SessionResult struct {
	Queries       []string
	Conversation  string
	FeedbackUsed  string
	TotalItems    int
	TotalProducts int
}

// ExtractionCacheEntry is a cached initial extraction.
type ExtractionCacheEntry struct {
	Queries      []string
	Conversation string
}

// PruneResult reports what PruneOlderThan removed.
type PruneResult struct {
	Sessions     int64
	CacheEntries int64
	// ImagePaths are the blob paths of the removed sessions.
	ImagePaths []string
}

// SQLiteStore persists sessions, their clothing items and the extraction cache.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", dbPath).Msg("could not restrict database permissions")
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	sessionsQuery := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		image_path TEXT NOT NULL,
		image_mime TEXT NOT NULL,
		queries TEXT NOT NULL DEFAULT '[]',
		conversation TEXT NOT NULL DEFAULT '',
		feedback_used TEXT NOT NULL DEFAULT '',
		total_items INTEGER NOT NULL DEFAULT 0,
		total_products INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(sessionsQuery); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	itemsQuery := `
	CREATE TABLE IF NOT EXISTS clothing_items (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		query TEXT NOT NULL,
		item_type TEXT NOT NULL,
		total_products INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (session_id, position),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(itemsQuery); err != nil {
		return fmt.Errorf("failed to create clothing_items table: %w", err)
	}

	cacheQuery := `
	CREATE TABLE IF NOT EXISTS extraction_cache (
		image_hash TEXT PRIMARY KEY,
		queries TEXT NOT NULL,
		conversation TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(cacheQuery); err != nil {
		return fmt.Errorf("failed to create extraction_cache table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession records a new upload in processing state.
func (s *SQLiteStore) CreateSession(imagePath, imageMIME string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		Status:    StatusProcessing,
		ImagePath: imagePath,
		ImageMIME: imageMIME,
		Queries:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, status, image_path, image_mime, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, string(session.Status), session.ImagePath, session.ImageMIME, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession retrieves a session by ID.
// Returns nil, nil if the session doesn't exist.
func (s *SQLiteStore) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		session Session
		status  string
		queries string
	)
	err := s.db.QueryRow(`
		SELECT id, status, image_path, image_mime, queries, conversation, feedback_used,
			total_items, total_products, error, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &status, &session.ImagePath, &session.ImageMIME, &queries, &session.Conversation,
		&session.FeedbackUsed, &session.TotalItems, &session.TotalProducts, &session.Error,
		&session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session.Status = SessionStatus(status)
	if err := json.Unmarshal([]byte(queries), &session.Queries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queries: %w", err)
	}

	return &session, nil
}

// UpdateSessionResult marks a session completed with the given result.
func (s *SQLiteStore) UpdateSessionResult(id string, result SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queries := result.Queries
	if queries == nil {
		queries = []string{}
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("failed to marshal queries: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE sessions SET
			status = ?, queries = ?, conversation = ?, feedback_used = ?,
			total_items = ?, total_products = ?, error = '', updated_at = ?
		WHERE id = ?`,
		string(StatusCompleted), string(queriesJSON), result.Conversation, result.FeedbackUsed,
		result.TotalItems, result.TotalProducts, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return expectOneRow(res, id)
}

// FailSession marks a session as failed with a message.
func (s *SQLiteStore) FailSession(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(StatusError), message, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark session failed: %w", err)
	}
	return expectOneRow(res, id)
}

// GetExtractionCache retrieves a cached extraction by image hash.
// Returns nil, nil if not found.
func (s *SQLiteStore) GetExtractionCache(imageHash string) (*ExtractionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var queries, conversation string
	err := s.db.QueryRow(
		"SELECT queries, conversation FROM extraction_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&queries, &conversation)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction cache: %w", err)
	}

	entry := &ExtractionCacheEntry{Conversation: conversation}
	if err := json.Unmarshal([]byte(queries), &entry.Queries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached queries: %w", err)
	}
	return entry, nil
}

// SetExtractionCache stores an extraction result, replacing any earlier one.
func (s *SQLiteStore) SetExtractionCache(imageHash string, entry *ExtractionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queries := entry.Queries
	if queries == nil {
		queries = []string{}
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("failed to marshal queries: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO extraction_cache (image_hash, queries, conversation, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			queries = excluded.queries,
			conversation = excluded.conversation,
			created_at = excluded.created_at
	`, imageHash, string(queriesJSON), entry.Conversation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set extraction cache: %w", err)
	}

	return nil
}

// PruneOlderThan removes sessions (with their clothing items) and cache
// entries last touched before now minus olderThan.
func (s *SQLiteStore) PruneOlderThan(olderThan time.Duration) (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result PruneResult
	cutoff := time.Now().UTC().Add(-olderThan)

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT image_path FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to query old sessions: %w", err)
	}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return result, fmt.Errorf("failed to scan image path: %w", err)
		}
		result.ImagePaths = append(result.ImagePaths, path)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, err
	}

	res, err := tx.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to prune sessions: %w", err)
	}
	result.Sessions, _ = res.RowsAffected()

	res, err = tx.Exec(`DELETE FROM extraction_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to prune extraction cache: %w", err)
	}
	result.CacheEntries, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}
