package model

// SheetRole 工作表在市场模板中的角色（用于上传时的结构识别）
type SheetRole string

const (
	SheetRoleUnknown SheetRole = "unknown"

	SheetRoleTemplate    SheetRole = "template"     // 数据填写页
	SheetRoleValidValues SheetRole = "valid_values" // 有效值参考页
)

// SheetRecognition 单个 sheet 的识别结果
type SheetRecognition struct {
	SheetName string    `json:"sheetName"`
	Role      SheetRole `json:"role"`
	// Keyword 命中的关键字；位置回退时为空
	Keyword string `json:"keyword,omitempty"`
	// Positional 是否由位置规则选出（第 5 / 第 2 / 唯一 sheet）
	Positional bool `json:"positional"`
}
