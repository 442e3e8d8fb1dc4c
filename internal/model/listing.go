package model

import "strings"

// Copy 一组文案（标题 / 描述 / 卖点）
type Copy struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Bullets     []string `json:"bullets,omitempty"`
}

// Listing 商品记录（导出时只读）
//
// Price / ShippingCost 保留原始文本，可能不是合法数字，由定价环节负责兜底。
type Listing struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Brand        string `json:"brand"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Price        string `json:"price"`
	ShippingCost string `json:"shippingCost"`

	Images []string `json:"images"`

	// Base 原始文案对象（无模板导出时直接平铺）
	Base         map[string]any  `json:"base"`
	Cleaned      Copy            `json:"cleaned"`
	Optimized    Copy            `json:"optimized"`
	Translations map[string]Copy `json:"translations"`
}

// Title 按 翻译 > 优化 > 清洗 > 原始 的优先级取标题
func (l *Listing) Title(marketplace string) string {
	if t, ok := l.translation(marketplace); ok && t.Title != "" {
		return t.Title
	}
	if l.Optimized.Title != "" {
		return l.Optimized.Title
	}
	if l.Cleaned.Title != "" {
		return l.Cleaned.Title
	}
	return l.baseString("title")
}

// Description 与 Title 相同的优先级
func (l *Listing) Description(marketplace string) string {
	if t, ok := l.translation(marketplace); ok && t.Description != "" {
		return t.Description
	}
	if l.Optimized.Description != "" {
		return l.Optimized.Description
	}
	if l.Cleaned.Description != "" {
		return l.Cleaned.Description
	}
	return l.baseString("description")
}

// Bullets 优先使用非空的翻译 / 优化卖点列表
func (l *Listing) Bullets(marketplace string) []string {
	if t, ok := l.translation(marketplace); ok && len(t.Bullets) > 0 {
		return t.Bullets
	}
	if len(l.Optimized.Bullets) > 0 {
		return l.Optimized.Bullets
	}
	if len(l.Cleaned.Bullets) > 0 {
		return l.Cleaned.Bullets
	}
	if raw, ok := l.Base["bullets"].([]any); ok {
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (l *Listing) translation(marketplace string) (Copy, bool) {
	if len(l.Translations) == 0 {
		return Copy{}, false
	}
	if t, ok := l.Translations[marketplace]; ok {
		return t, true
	}
	for k, t := range l.Translations {
		if strings.EqualFold(k, marketplace) {
			return t, true
		}
	}
	return Copy{}, false
}

func (l *Listing) baseString(key string) string {
	if l.Base == nil {
		return ""
	}
	s, _ := l.Base[key].(string)
	return s
}
