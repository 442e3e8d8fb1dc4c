// Package pricing 计算导出价格：多条百分比规则连乘、可选含运费、按市场汇率换算。
package pricing

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"skuforge/internal/model"
)

// Input 单条商品的定价输入
type Input struct {
	Price        string
	ShippingCost string
	CategoryID   string
	Marketplace  string
}

// Resolver 持有一次导出所需的全部规则与汇率
type Resolver struct {
	adjustments []model.PriceAdjustment
	rates       map[string]decimal.Decimal
}

// NewResolver 创建定价器；同一市场出现多条汇率时以后者为准
func NewResolver(adjustments []model.PriceAdjustment, rates []model.ExchangeRate) *Resolver {
	r := &Resolver{
		adjustments: adjustments,
		rates:       make(map[string]decimal.Decimal, len(rates)),
	}
	for _, rate := range rates {
		r.rates[strings.ToUpper(strings.TrimSpace(rate.Marketplace))] = decimal.NewFromFloat(rate.Rate)
	}
	return r
}

// Applicable 返回作用于该市场与类目的规则（保持原有顺序）
func (r *Resolver) Applicable(marketplace, categoryID string) []model.PriceAdjustment {
	out := make([]model.PriceAdjustment, 0, len(r.adjustments))
	for _, a := range r.adjustments {
		if a.AppliesTo(marketplace, categoryID) {
			out = append(out, a)
		}
	}
	return out
}

// Rate 返回市场汇率，缺省为 1
func (r *Resolver) Rate(marketplace string) decimal.Decimal {
	if rate, ok := r.rates[strings.ToUpper(strings.TrimSpace(marketplace))]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Resolve 计算最终价格，保留两位小数；任何非数字输入都按 0 处理
func (r *Resolver) Resolve(in Input) float64 {
	price := Coerce(in.Price)
	shipping := Coerce(in.ShippingCost)

	rules := r.Applicable(in.Marketplace, in.CategoryID)

	working := price
	for _, a := range rules {
		if a.IncludeShipping {
			working = price.Add(shipping)
			break
		}
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	for _, a := range rules {
		working = working.Mul(one.Add(decimal.NewFromFloat(a.Percentage).Div(hundred)))
	}

	working = working.Mul(r.Rate(in.Marketplace))
	return working.Round(2).InexactFloat64()
}

// Coerce 将文本金额转为数值；支持千分位、小数逗号与货币符号，失败返回 0
func Coerce(raw string) decimal.Decimal {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.In(r, unicode.Zs, unicode.Sc) {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// 以最后出现的分隔符作为小数点
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ",") == 1 && len(s)-strings.Index(s, ",")-1 != 3:
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CoerceFloat Coerce 的 float64 版本，保留两位小数
func CoerceFloat(raw string) float64 {
	return Coerce(raw).Round(2).InexactFloat64()
}
