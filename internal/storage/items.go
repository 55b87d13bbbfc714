package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fitfind/fitfind/internal/results"
)

// SaveClothingItems replaces the clothing items stored for a session.
func (s *SQLiteStore) SaveClothingItems(sessionID string, items []results.ClothingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM clothing_items WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear clothing items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO clothing_items (session_id, position, query, item_type, total_products, data)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal clothing item: %w", err)
		}
		if _, err := stmt.Exec(sessionID, i, item.Query, item.ItemType, item.TotalProducts, string(data)); err != nil {
			return fmt.Errorf("failed to insert clothing item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetClothingItems returns the stored clothing items of a session in order.
func (s *SQLiteStore) GetClothingItems(sessionID string) ([]results.ClothingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT data FROM clothing_items WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query clothing items: %w", err)
	}
	defer rows.Close()

	items := []results.ClothingItem{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan clothing item: %w", err)
		}
		var item results.ClothingItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clothing item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
