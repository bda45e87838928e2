package database

import (
	"fmt"
)

var _ NewsRepository = (*NewsRepositoryImpl)(nil)

// NewsRepositoryImpl handles database operations for the news snapshot
type NewsRepositoryImpl struct {
	db *DB
}

func NewNewsRepository(db *DB) *NewsRepositoryImpl {
	return &NewsRepositoryImpl{db: db}
}

// GetAll returns the current snapshot ordered by first appearance, newest first
func (r *NewsRepositoryImpl) GetAll() ([]NewsItem, error) {
	rows, err := r.db.Query(`
		SELECT id, title, link, first_seen_at
		FROM news_items
		ORDER BY first_seen_at DESC, link
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get news items: %w", err)
	}
	defer rows.Close()

	var items []NewsItem
	for rows.Next() {
		var item NewsItem
		err := rows.Scan(&item.ID, &item.Title, &item.Link, &item.FirstSeenAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news item rows: %w", err)
	}

	return items, nil
}

// GetLinks returns the set of links in the current snapshot, the identity
// key used for change detection
func (r *NewsRepositoryImpl) GetLinks() (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT link FROM news_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to get news links: %w", err)
	}
	defer rows.Close()

	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links[link] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}

	return links, nil
}

func (r *NewsRepositoryImpl) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM news_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get news item count: %w", err)
	}
	return count, nil
}

// ReplaceAll swaps the stored snapshot for the given set in one transaction.
// The source page only shows a bounded recent window, so a full replace keeps
// the snapshot bounded and self-correcting.
func (r *NewsRepositoryImpl) ReplaceAll(items []NewsItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM news_items`); err != nil {
		return fmt.Errorf("failed to clear news items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO news_items (title, link, first_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (link) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(item.Title, item.Link, item.FirstSeenAt); err != nil {
			return fmt.Errorf("failed to insert news item %s: %w", item.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot replace: %w", err)
	}

	return nil
}
