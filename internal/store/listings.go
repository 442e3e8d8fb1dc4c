package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"skuforge/internal/model"
)

// UpsertListings 批量写入商品记录；缺少 id 的记录自动分配
func (s *Store) UpsertListings(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO listings (id, sku, category_id, data_json, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				sku = excluded.sku,
				category_id = excluded.category_id,
				data_json = excluded.data_json,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i := range listings {
			l := &listings[i]
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			data, err := json.Marshal(l)
			if err != nil {
				return fmt.Errorf("encode listing %s: %w", l.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, l.ID, l.SKU, l.CategoryID, string(data)); err != nil {
				return fmt.Errorf("failed to upsert listing %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

// GetListings 按给定顺序返回记录；ids 为空时返回全部
//
// 任一 id 不存在时返回 NotFoundError。
func (s *Store) GetListings(ctx context.Context, ids []string) ([]model.Listing, error) {
	query := "SELECT id, data_json FROM listings"
	args := make([]interface{}, 0, len(ids))
	if len(ids) > 0 {
		query += " WHERE id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	} else {
		query += " ORDER BY sku, id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings failed: %w", err)
	}
	defer rows.Close()

	var all []model.Listing
	byID := make(map[string]model.Listing)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan listing failed: %w", err)
		}
		var l model.Listing
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", id, err)
		}
		l.ID = id
		all = append(all, l)
		byID[id] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings failed: %w", err)
	}

	if len(ids) == 0 {
		if all == nil {
			all = []model.Listing{}
		}
		return all, nil
	}
	out := make([]model.Listing, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, &model.NotFoundError{Resource: "listing", ID: id}
		}
		out = append(out, l)
	}
	return out, nil
}

// ListCategories 全部类目
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query categories failed: %w", err)
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCategories 批量写入类目
func (s *Store) UpsertCategories(ctx context.Context, categories []model.Category) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range categories {
			if strings.TrimSpace(c.ID) == "" {
				return &model.ValidationError{Message: "category id is required"}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO categories (id, name) VALUES (?, ?)
				ON CONFLICT(id) DO UPDATE SET name = excluded.name
			`, c.ID, c.Name); err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
			}
		}
		return nil
	})
}
