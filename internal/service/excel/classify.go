package excel

import (
	"strings"

	"skuforge/internal/model"
)

// ClassifyHeader 按规则表顺序识别列语义
func ClassifyHeader(header string) (ColumnRole, bool) {
	norm := normalizeText(header)
	if norm == "" {
		return "", false
	}
	for _, rule := range defaultMarkers.Columns {
		if rule.match(norm) {
			return rule.Role, true
		}
	}
	return "", false
}

// ClassifyColumns 为每个非空表头生成映射骨架
//
// 图片列与卖点列在同一次上传内按出现顺序自动编号（image_1, image_2 ...）。
// 未识别的列：示例行有值则取模板默认值，否则为空的自定义值。
func ClassifyColumns(headers, example []string, enums map[string][]string) map[int]model.FieldMapping {
	mappings := make(map[int]model.FieldMapping, len(headers))
	imageN, bulletN := 0, 0

	for col, header := range headers {
		if strings.TrimSpace(header) == "" {
			continue
		}
		m := model.FieldMapping{
			TemplateDefault: strings.TrimSpace(cellAt(example, col)),
			AcceptedValues:  enums[normalizeText(header)],
		}

		role, ok := ClassifyHeader(header)
		switch {
		case !ok:
			if m.TemplateDefault != "" {
				m.Rule = model.TemplateDefaultRule{}
			} else {
				m.Rule = model.CustomRule{}
			}
		case role == RoleExternalID:
			m.Rule = model.RandomRule{Kind: model.RandomEAN13}
		case role == RoleImage:
			imageN++
			m.Rule = listingRule(model.FieldImage, imageN)
		case role == RoleBullet:
			bulletN++
			m.Rule = listingRule(model.FieldBullet, bulletN)
		default:
			m.Rule = listingRule(roleFields[role], 0)
		}
		mappings[col] = m
	}
	return mappings
}

var roleFields = map[ColumnRole]model.ListingFieldKind{
	RoleSKU:         model.FieldSKU,
	RoleTitle:       model.FieldTitle,
	RoleDescription: model.FieldDescription,
	RoleBrand:       model.FieldBrand,
	RolePrice:       model.FieldPrice,
	RoleShipping:    model.FieldShipping,
}

func listingRule(kind model.ListingFieldKind, index int) model.ListingRule {
	return model.ListingRule{Field: model.ListingField{Kind: kind, Index: index}}
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
