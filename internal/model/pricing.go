package model

import "strings"

// Wildcard 适用于全部市场 / 全部类目的通配值
const Wildcard = "ALL"

// PriceAdjustment 价格调整规则（按市场 + 类目限定的百分比）
type PriceAdjustment struct {
	ID              string  `json:"id"`
	Marketplace     string  `json:"marketplace"`
	CategoryID      string  `json:"categoryId"`
	Percentage      float64 `json:"percentage"`
	IncludeShipping bool    `json:"includeShipping"`
}

// AppliesTo 判断规则是否作用于指定市场与类目
func (a PriceAdjustment) AppliesTo(marketplace, categoryID string) bool {
	return matchScope(a.Marketplace, marketplace) && matchScope(a.CategoryID, categoryID)
}

func matchScope(scope, value string) bool {
	scope = strings.TrimSpace(scope)
	if scope == "" || strings.EqualFold(scope, Wildcard) {
		return true
	}
	return strings.EqualFold(scope, strings.TrimSpace(value))
}

// ExchangeRate 汇率：基准货币固定为 1.0，每个市场最多一条
type ExchangeRate struct {
	Marketplace string  `json:"marketplace"`
	Rate        float64 `json:"rate"`
}

// Category 商品类目
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
