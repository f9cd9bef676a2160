package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

// ItemStore implements storage.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *Pool
}

// NewItemStore creates a new ItemStore.
func NewItemStore(pool *Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ItemStore = (*ItemStore)(nil)

// UpsertAll replaces catalog rows for the given items in one transaction.
func (s *ItemStore) UpsertAll(ctx context.Context, items []*domain.ItemMetadata) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO items (id, name, buy_limit, members, value, high_alch, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			buy_limit = EXCLUDED.buy_limit,
			members = EXCLUDED.members,
			value = EXCLUDED.value,
			high_alch = EXCLUDED.high_alch,
			icon = EXCLUDED.icon
	`

	for _, it := range items {
		if it == nil || it.ID <= 0 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			it.ID, it.Name, it.BuyLimit, it.Members, it.Value, it.HighAlch, it.Icon,
		)
		if err != nil {
			return fmt.Errorf("upsert item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves one item. Returns ErrNotFound if not exists.
func (s *ItemStore) GetByID(ctx context.Context, itemID int) (*domain.ItemMetadata, error) {
	query := `
		SELECT id, name, buy_limit, members, value, high_alch, icon
		FROM items
		WHERE id = $1
	`

	var it domain.ItemMetadata
	err := s.pool.QueryRow(ctx, query, itemID).Scan(
		&it.ID, &it.Name, &it.BuyLimit, &it.Members, &it.Value, &it.HighAlch, &it.Icon,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return &it, nil
}

// GetAll retrieves the full catalog, ordered by item id ASC.
func (s *ItemStore) GetAll(ctx context.Context) ([]*domain.ItemMetadata, error) {
	query := `
		SELECT id, name, buy_limit, members, value, high_alch, icon
		FROM items
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// scanItems scans multiple rows into a slice of ItemMetadata.
func scanItems(rows pgx.Rows) ([]*domain.ItemMetadata, error) {
	var items []*domain.ItemMetadata

	for rows.Next() {
		var it domain.ItemMetadata
		err := rows.Scan(&it.ID, &it.Name, &it.BuyLimit, &it.Members, &it.Value, &it.HighAlch, &it.Icon)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, &it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}

	return items, nil
}
