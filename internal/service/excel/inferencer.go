package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"skuforge/internal/model"
)

const (
	headerScanRows    = 12
	enumScanRows      = 25
	minHeaderCells    = 5
	fallbackHeaderRow = 3
	dataRowOffset     = 4
)

// InferResult 上传时的结构推断结果
type InferResult struct {
	Sheet             model.SheetRecognition            `json:"sheet"`
	Sheets            map[string]model.SheetRecognition `json:"sheets"`
	Headers           []string                          `json:"headers"`
	HeaderRowIndex    int                               `json:"headerRowIndex"`
	DataStartRowIndex int                               `json:"dataStartRowIndex"`
	Confident         bool                              `json:"confident"`
	ExampleRow        []string                          `json:"exampleRow"`
	EnumerationSheet  string                            `json:"enumerationSheet,omitempty"`
	Enumerations      map[string][]string               `json:"enumerations"`
	Mappings          map[int]model.FieldMapping        `json:"mappings"`
}

// Layout 转为持久化的版式
func (r *InferResult) Layout() model.Layout {
	return model.Layout{
		SheetName:         r.Sheet.SheetName,
		HeaderRowIndex:    r.HeaderRowIndex,
		DataStartRowIndex: r.DataStartRowIndex,
		Confident:         r.Confident,
	}
}

// Inferencer 模板结构推断器
type Inferencer struct {
	rec     *Recognizer
	markers *markerTable
}

// NewInferencer 创建推断器
func NewInferencer() *Inferencer {
	return &Inferencer{rec: NewRecognizer(), markers: defaultMarkers}
}

// Infer 解析上传的工作簿字节并推断结构
func (in *Inferencer) Infer(data []byte) (*InferResult, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()
	return in.InferWorkbook(wb)
}

// InferWorkbook 对已打开的工作簿推断结构
func (in *Inferencer) InferWorkbook(wb *excelize.File) (*InferResult, error) {
	sheet, ok := in.rec.SelectTemplateSheet(wb.GetSheetList())
	if !ok {
		return nil, &model.SchemaNotFoundError{Reason: "template sheet not found"}
	}

	rows, err := wb.GetRows(sheet.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet.SheetName, err)
	}

	headerIdx, confident, ok := in.findHeaderRow(rows)
	if !ok {
		return nil, &model.SchemaNotFoundError{Reason: "no recognizable schema"}
	}

	headers := trimRow(rowAt(rows, headerIdx))
	dataStart := headerIdx + dataRowOffset
	example := trimRow(rowAt(rows, dataStart))

	enumSheet, enums := in.extractEnumerations(wb)

	return &InferResult{
		Sheet:             sheet,
		Sheets:            in.rec.RecognizeWorkbook(wb),
		Headers:           headers,
		HeaderRowIndex:    headerIdx,
		DataStartRowIndex: dataStart,
		Confident:         confident,
		ExampleRow:        example,
		EnumerationSheet:  enumSheet,
		Enumerations:      enums,
		Mappings:          ClassifyColumns(headers, example, enums),
	}, nil
}

// findHeaderRow 在前 12 行中找第一行：至少 5 个非空单元格且包含表头标记词
//
// 有足够宽的行但都没有标记词时回退到第 4 行（索引 3），confident=false；
// 前 12 行都不够宽时返回 ok=false。
func (in *Inferencer) findHeaderRow(rows [][]string) (idx int, confident bool, ok bool) {
	wide := false
	for i := 0; i < headerScanRows && i < len(rows); i++ {
		if countNonEmpty(rows[i]) < minHeaderCells {
			continue
		}
		wide = true
		if containsAny(normalizeText(strings.Join(rows[i], " ")), in.markers.HeaderMarkers) {
			return i, true, true
		}
	}
	if !wide {
		return 0, false, false
	}
	return fallbackHeaderRow, false, true
}

// extractEnumerations 读取有效值页：字段名列向下填充，值去重并保持顺序
//
// 找不到有效值页或两列表头时返回空结果，不视为错误。
func (in *Inferencer) extractEnumerations(wb *excelize.File) (string, map[string][]string) {
	enums := make(map[string][]string)

	sheet := in.rec.SelectValidValuesSheet(wb.GetSheetList())
	if sheet == "" {
		return "", enums
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return sheet, enums
	}

	fieldCol, valueCol, headerRow := -1, -1, -1
	for i := 0; i < enumScanRows && i < len(rows); i++ {
		fc, vc := -1, -1
		for c, cell := range rows[i] {
			norm := normalizeText(cell)
			if norm == "" {
				continue
			}
			if fc < 0 && containsAny(norm, in.markers.FieldNameHeader) {
				fc = c
				continue
			}
			if vc < 0 && containsAny(norm, in.markers.ValidValueHeader) {
				vc = c
			}
		}
		if fc >= 0 && vc >= 0 {
			fieldCol, valueCol, headerRow = fc, vc, i
			break
		}
	}
	if headerRow < 0 {
		return sheet, enums
	}

	seen := make(map[string]map[string]struct{})
	current := ""
	for _, row := range rows[headerRow+1:] {
		if f := strings.TrimSpace(cellAt(row, fieldCol)); f != "" && !in.isHeaderEcho(f) {
			current = normalizeText(f)
		}
		v := strings.TrimSpace(cellAt(row, valueCol))
		if current == "" || v == "" {
			continue
		}
		nv := normalizeText(v)
		if in.isHeaderEcho(v) || equalsAny(nv, in.markers.NoneTokens) {
			continue
		}
		if seen[current] == nil {
			seen[current] = make(map[string]struct{})
		}
		if _, dup := seen[current][v]; dup {
			continue
		}
		seen[current][v] = struct{}{}
		enums[current] = append(enums[current], v)
	}
	return sheet, enums
}

func (in *Inferencer) isHeaderEcho(s string) bool {
	norm := normalizeText(s)
	return equalsAny(norm, in.markers.FieldNameHeader) || equalsAny(norm, in.markers.ValidValueHeader)
}

func rowAt(rows [][]string, idx int) []string {
	if idx < 0 || idx >= len(rows) {
		return nil
	}
	return rows[idx]
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func countNonEmpty(row []string) int {
	n := 0
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
