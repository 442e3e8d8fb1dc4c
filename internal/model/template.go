package model

import (
	"sort"
	"time"
)

// Layout 上传时推断出的模板版式
type Layout struct {
	SheetName         string `json:"sheetName"`
	HeaderRowIndex    int    `json:"headerRowIndex"`    // 0 起始
	DataStartRowIndex int    `json:"dataStartRowIndex"` // 0 起始，= HeaderRowIndex + 4
	// Confident 表头行是否由标记词命中；为 false 时使用了回退行
	Confident bool `json:"confident"`
}

// Template 一次上传得到的模板：原始二进制 + 表头 + 逐列映射 + 版式
type Template struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Marketplace string `json:"marketplace"`
	CategoryID  string `json:"categoryId"`

	Headers  []string             `json:"headers"`
	Mappings map[int]FieldMapping `json:"mappings"`
	Layout   Layout               `json:"layout"`

	// Payload 原始工作簿字节；导出时只读
	Payload []byte `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Columns 返回按列号升序的映射列
func (t *Template) Columns() []int {
	cols := make([]int, 0, len(t.Mappings))
	for c := range t.Mappings {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

// TemplateSummary 列表展示用的模板摘要（不含二进制）
type TemplateSummary struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Marketplace string    `json:"marketplace"`
	CategoryID  string    `json:"categoryId"`
	Columns     int       `json:"columns"`
	SheetName   string    `json:"sheetName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
