package excel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"skuforge/internal/model"
	"skuforge/internal/service/codegen"
	"skuforge/internal/service/pricing"
)

// InjectRequest 一次注入所需的全部输入
type InjectRequest struct {
	Template    *model.Template
	Marketplace string
	Listings    []model.Listing
	Pricing     *pricing.Resolver
	Codes       *codegen.Generator
}

// InjectResult 注入后的工作簿
type InjectResult struct {
	Data      []byte
	SheetName string
	Rows      int
	Dimension string
}

// Injector 在原始模板上逐格写值：样式、宏、无关 sheet 保持原样
type Injector struct{}

// NewInjector 创建注入器
func NewInjector() *Injector {
	return &Injector{}
}

// Inject 重新打开模板二进制，写入每条记录的计算值并重新序列化
func (in *Injector) Inject(ctx context.Context, req InjectRequest) (*InjectResult, error) {
	tmpl := req.Template
	if tmpl == nil {
		return nil, &model.TemplateIncompleteError{Err: errors.New("template is nil")}
	}
	if len(tmpl.Payload) == 0 {
		return nil, &model.TemplateIncompleteError{TemplateID: tmpl.ID}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := excelize.OpenReader(bytes.NewReader(tmpl.Payload))
	if err != nil {
		return nil, &model.TemplateIncompleteError{TemplateID: tmpl.ID, Err: err}
	}
	defer wb.Close()

	sheet := resolveSheet(wb, tmpl.Layout.SheetName)
	if sheet == "" {
		return nil, &model.TemplateIncompleteError{TemplateID: tmpl.ID, Err: errors.New("workbook has no sheets")}
	}

	res := req.Pricing
	if res == nil {
		res = pricing.NewResolver(nil, nil)
	}
	codes := req.Codes
	if codes == nil {
		if codes, err = codegen.NewGenerator(nil, codegen.DefaultEANPrefix); err != nil {
			return nil, err
		}
	}
	vr := &valueResolver{marketplace: req.Marketplace, pricing: res, codes: codes}

	cols := tmpl.Columns()
	start := tmpl.Layout.DataStartRowIndex
	for r := range req.Listings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listing := &req.Listings[r]
		for _, col := range cols {
			value := vr.resolve(listing, tmpl.Mappings[col])
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, start+r+1)
			if err != nil {
				return nil, &model.SerializationError{Err: err}
			}
			if err := writeCell(wb, sheet, cell, value); err != nil {
				return nil, &model.SerializationError{Err: fmt.Errorf("write %s!%s: %w", sheet, cell, err)}
			}
		}
	}

	dim, err := wb.GetSheetDimension(sheet)
	if err != nil {
		return nil, &model.SerializationError{Err: err}
	}
	if len(req.Listings) > 0 {
		lastCol := 0
		if len(cols) > 0 {
			lastCol = cols[len(cols)-1] + 1
		}
		if dim, err = extendDimension(dim, start+len(req.Listings), lastCol); err != nil {
			return nil, &model.SerializationError{Err: err}
		}
		if err := wb.SetSheetDimension(sheet, dim); err != nil {
			return nil, &model.SerializationError{Err: err}
		}
	}

	// WriteToBuffer 不改写 [Content_Types].xml，宏工作簿保持 macroEnabled
	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, &model.SerializationError{Err: err}
	}
	return &InjectResult{
		Data:      buf.Bytes(),
		SheetName: sheet,
		Rows:      len(req.Listings),
		Dimension: dim,
	}, nil
}

func resolveSheet(wb *excelize.File, name string) string {
	sheets := wb.GetSheetList()
	for _, s := range sheets {
		if s == name {
			return s
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func writeCell(wb *excelize.File, sheet, cell string, value any) error {
	switch v := value.(type) {
	case float64:
		return wb.SetCellFloat(sheet, cell, v, -1, 64)
	case string:
		return wb.SetCellStr(sheet, cell, v)
	default:
		return wb.SetCellValue(sheet, cell, v)
	}
}

// extendDimension 扩展已用区域，使其至少覆盖到 lastRow 行、lastCol 列（均从 1 开始）
func extendDimension(dim string, lastRow, lastCol int) (string, error) {
	topLeft, bottomRight := "A1", "A1"
	if dim = strings.TrimSpace(dim); dim != "" {
		parts := strings.SplitN(dim, ":", 2)
		topLeft = parts[0]
		bottomRight = parts[len(parts)-1]
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(bottomRight)
	if err != nil {
		return "", fmt.Errorf("parse dimension %q: %w", dim, err)
	}
	if lastRow > endRow {
		endRow = lastRow
	}
	if lastCol > endCol {
		endCol = lastCol
	}
	end, err := excelize.CoordinatesToCellName(endCol, endRow)
	if err != nil {
		return "", err
	}
	return topLeft + ":" + end, nil
}

// valueResolver 按映射规则计算单元格值；返回 nil 表示保留模板原值
type valueResolver struct {
	marketplace string
	pricing     *pricing.Resolver
	codes       *codegen.Generator
}

func (v *valueResolver) resolve(l *model.Listing, m model.FieldMapping) any {
	var value any
	switch rule := m.Rule.(type) {
	case model.ListingRule:
		value = v.listingValue(l, rule.Field)
	case model.CustomRule:
		if canon, ok := model.CanonicalValue(rule.Value, m.AcceptedValues); ok {
			value = canon
		} else {
			value = rule.Value
		}
	case model.TemplateDefaultRule:
		value = m.TemplateDefault
	case model.RandomRule:
		code, err := v.codes.Generate(rule.Kind)
		if err == nil {
			value = code
		}
	}

	if s, ok := value.(string); ok || value == nil {
		if strings.TrimSpace(s) != "" {
			return s
		}
		if m.TemplateDefault != "" {
			return m.TemplateDefault
		}
		return nil
	}
	return value
}

func (v *valueResolver) listingValue(l *model.Listing, f model.ListingField) any {
	switch f.Kind {
	case model.FieldSKU:
		return l.SKU
	case model.FieldTitle:
		return l.Title(v.marketplace)
	case model.FieldDescription:
		return l.Description(v.marketplace)
	case model.FieldBrand:
		return l.Brand
	case model.FieldPrice:
		return v.pricing.Resolve(pricing.Input{
			Price:        l.Price,
			ShippingCost: l.ShippingCost,
			CategoryID:   l.CategoryID,
			Marketplace:  v.marketplace,
		})
	case model.FieldShipping:
		return pricing.CoerceFloat(l.ShippingCost)
	case model.FieldImage:
		return nth(l.Images, f.Index)
	case model.FieldBullet:
		return nth(l.Bullets(v.marketplace), f.Index)
	}
	return ""
}

// nth 取从 1 开始编号的元素，越界返回空串
func nth(list []string, n int) string {
	if n < 1 || n > len(list) {
		return ""
	}
	return list[n-1]
}
