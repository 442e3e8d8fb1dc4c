package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"skuforge/internal/model"
)

// ListPriceAdjustments 全部价格调整规则（按创建顺序）
func (s *Store) ListPriceAdjustments(ctx context.Context) ([]model.PriceAdjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, marketplace, category_id, percentage, include_shipping
		FROM price_adjustments ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query price adjustments failed: %w", err)
	}
	defer rows.Close()

	out := []model.PriceAdjustment{}
	for rows.Next() {
		var a model.PriceAdjustment
		if err := rows.Scan(&a.ID, &a.Marketplace, &a.CategoryID, &a.Percentage, &a.IncludeShipping); err != nil {
			return nil, fmt.Errorf("scan price adjustment failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SavePriceAdjustment 新建或更新规则；空的市场/类目按 ALL 处理
func (s *Store) SavePriceAdjustment(ctx context.Context, a *model.PriceAdjustment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if strings.TrimSpace(a.Marketplace) == "" {
		a.Marketplace = model.Wildcard
	}
	if strings.TrimSpace(a.CategoryID) == "" {
		a.CategoryID = model.Wildcard
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_adjustments (id, marketplace, category_id, percentage, include_shipping)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			marketplace = excluded.marketplace,
			category_id = excluded.category_id,
			percentage = excluded.percentage,
			include_shipping = excluded.include_shipping
	`, a.ID, a.Marketplace, a.CategoryID, a.Percentage, a.IncludeShipping)
	if err != nil {
		return fmt.Errorf("failed to save price adjustment: %w", err)
	}
	return nil
}

// DeletePriceAdjustment 删除规则
func (s *Store) DeletePriceAdjustment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM price_adjustments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete price adjustment: %w", err)
	}
	return requireAffected(res, "price adjustment", id)
}

// ListExchangeRates 全部汇率
func (s *Store) ListExchangeRates(ctx context.Context) ([]model.ExchangeRate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT marketplace, rate FROM exchange_rates ORDER BY marketplace")
	if err != nil {
		return nil, fmt.Errorf("query exchange rates failed: %w", err)
	}
	defer rows.Close()

	out := []model.ExchangeRate{}
	for rows.Next() {
		var r model.ExchangeRate
		if err := rows.Scan(&r.Marketplace, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan exchange rate failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetExchangeRate 写入汇率，同一市场以最后一次写入为准
func (s *Store) SetExchangeRate(ctx context.Context, marketplace string, rate float64) error {
	marketplace = strings.ToUpper(strings.TrimSpace(marketplace))
	if marketplace == "" {
		return &model.ValidationError{Message: "marketplace is required"}
	}
	if rate <= 0 {
		return &model.ValidationError{Message: "rate must be positive", Fields: map[string]string{"rate": fmt.Sprint(rate)}}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (marketplace, rate, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(marketplace) DO UPDATE SET rate = excluded.rate, updated_at = CURRENT_TIMESTAMP
	`, marketplace, rate)
	if err != nil {
		return fmt.Errorf("failed to set exchange rate: %w", err)
	}
	return nil
}
