package excel

import (
	"github.com/xuri/excelize/v2"

	"skuforge/internal/model"
)

// Recognizer 按 sheet 名识别模板页与有效值页
type Recognizer struct {
	markers *markerTable
}

// NewRecognizer 创建识别器
func NewRecognizer() *Recognizer {
	return &Recognizer{markers: defaultMarkers}
}

// RecognizeWorkbook 识别工作簿内每个 sheet 的角色
func (r *Recognizer) RecognizeWorkbook(wb *excelize.File) map[string]model.SheetRecognition {
	results := make(map[string]model.SheetRecognition)
	if wb == nil {
		return results
	}
	for _, name := range wb.GetSheetList() {
		norm := normalizeText(name)
		rec := model.SheetRecognition{SheetName: name, Role: model.SheetRoleUnknown}
		if kw := firstContained(norm, r.markers.ValidValuesSheet); kw != "" {
			rec.Role = model.SheetRoleValidValues
			rec.Keyword = kw
		} else if kw := firstContained(norm, r.markers.TemplateSheet); kw != "" {
			rec.Role = model.SheetRoleTemplate
			rec.Keyword = kw
		}
		results[name] = rec
	}
	return results
}

// SelectTemplateSheet 选出数据填写页：先按多语言关键字，再按位置回退
//
// 位置规则：至少 5 个 sheet 取第 5 个，至少 2 个取第 2 个，否则取唯一的一个。
func (r *Recognizer) SelectTemplateSheet(sheets []string) (model.SheetRecognition, bool) {
	if name, kw := r.findSheet(sheets, r.markers.TemplateSheet, r.markers.ValidValuesSheet); name != "" {
		return model.SheetRecognition{SheetName: name, Role: model.SheetRoleTemplate, Keyword: kw}, true
	}

	var name string
	switch {
	case len(sheets) >= 5:
		name = sheets[4]
	case len(sheets) >= 2:
		name = sheets[1]
	case len(sheets) == 1:
		name = sheets[0]
	default:
		return model.SheetRecognition{}, false
	}
	return model.SheetRecognition{SheetName: name, Role: model.SheetRoleTemplate, Positional: true}, true
}

// SelectValidValuesSheet 选出有效值参考页，找不到返回空串
func (r *Recognizer) SelectValidValuesSheet(sheets []string) string {
	name, _ := r.findSheet(sheets, r.markers.ValidValuesSheet, nil)
	return name
}

// findSheet 先找名称与关键字完全一致的 sheet，再找名称按词包含关键字的 sheet；
// 包含排除关键字的 sheet 不参与
func (r *Recognizer) findSheet(sheets []string, keywords, excluded []string) (string, string) {
	for _, name := range sheets {
		norm := normalizeText(name)
		if containsAny(norm, excluded) {
			continue
		}
		for _, kw := range keywords {
			if norm == kw {
				return name, kw
			}
		}
	}
	for _, name := range sheets {
		norm := normalizeText(name)
		if containsAny(norm, excluded) {
			continue
		}
		if kw := firstContained(norm, keywords); kw != "" {
			return name, kw
		}
	}
	return "", ""
}
