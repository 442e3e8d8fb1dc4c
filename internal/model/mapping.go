package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source 列取值来源（FieldMapping 的判别字段）
type Source string

const (
	SourceListing         Source = "listing"
	SourceCustom          Source = "custom"
	SourceTemplateDefault Source = "template_default"
	SourceRandom          Source = "random"
)

// ListingFieldKind 商品记录字段类别
type ListingFieldKind string

const (
	FieldSKU         ListingFieldKind = "sku"
	FieldTitle       ListingFieldKind = "title"
	FieldDescription ListingFieldKind = "description"
	FieldBrand       ListingFieldKind = "brand"
	FieldPrice       ListingFieldKind = "price"
	FieldShipping    ListingFieldKind = "shipping"
	FieldImage       ListingFieldKind = "image"  // image_N，N 从 1 开始
	FieldBullet      ListingFieldKind = "bullet" // bullet_N，N 从 1 开始
)

// ListingField 商品记录中的一个字段；图片与卖点带序号
type ListingField struct {
	Kind  ListingFieldKind
	Index int
}

// Numbered 是否为带序号的字段
func (k ListingFieldKind) Numbered() bool {
	return k == FieldImage || k == FieldBullet
}

func (f ListingField) String() string {
	if f.Kind.Numbered() {
		return fmt.Sprintf("%s_%d", f.Kind, f.Index)
	}
	return string(f.Kind)
}

// ParseListingField 解析 "title" / "image_3" 形式的字段名
func ParseListingField(s string) (ListingField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch ListingFieldKind(s) {
	case FieldSKU, FieldTitle, FieldDescription, FieldBrand, FieldPrice, FieldShipping:
		return ListingField{Kind: ListingFieldKind(s)}, nil
	}

	head, num, ok := strings.Cut(s, "_")
	if !ok {
		return ListingField{}, fmt.Errorf("unknown listing field %q", s)
	}
	kind := ListingFieldKind(head)
	if !kind.Numbered() {
		return ListingField{}, fmt.Errorf("unknown listing field %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return ListingField{}, fmt.Errorf("invalid index in listing field %q", s)
	}
	return ListingField{Kind: kind, Index: n}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (f ListingField) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ListingField) UnmarshalText(b []byte) error {
	parsed, err := ParseListingField(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// RandomKind 随机值生成类型
type RandomKind string

const (
	RandomAlphanumeric RandomKind = "alphanumeric"
	RandomEAN13        RandomKind = "ean13"
)

func (k RandomKind) valid() bool {
	return k == RandomAlphanumeric || k == RandomEAN13
}

// Rule 列取值规则；只有本包内的四种实现
type Rule interface {
	Source() Source
	isRule()
}

// ListingRule 取商品记录的某个字段
type ListingRule struct {
	Field ListingField
}

// CustomRule 运营填写的固定值
type CustomRule struct {
	Value string
}

// TemplateDefaultRule 使用模板示例行中的原值
type TemplateDefaultRule struct{}

// RandomRule 导出时生成随机值
type RandomRule struct {
	Kind RandomKind
}

func (ListingRule) Source() Source         { return SourceListing }
func (CustomRule) Source() Source          { return SourceCustom }
func (TemplateDefaultRule) Source() Source { return SourceTemplateDefault }
func (RandomRule) Source() Source          { return SourceRandom }

func (ListingRule) isRule()         {}
func (CustomRule) isRule()          {}
func (TemplateDefaultRule) isRule() {}
func (RandomRule) isRule()          {}

// FieldMapping 单列取值规则
//
// TemplateDefault 为上传时示例行的原值，任何规则取值为空时都用它兜底；
// AcceptedValues 来自模板自带的有效值页。
type FieldMapping struct {
	Rule            Rule
	TemplateDefault string
	AcceptedValues  []string
}

// Source 返回当前生效的取值来源
func (m FieldMapping) Source() Source {
	if m.Rule == nil {
		return ""
	}
	return m.Rule.Source()
}

// Validate 校验规则完整性，以及自定义值是否在有效值列表内
func (m FieldMapping) Validate() error {
	switch r := m.Rule.(type) {
	case nil:
		return &ValidationError{Message: "mapping source is required"}
	case ListingRule:
		if r.Field.Kind.Numbered() && r.Field.Index < 1 {
			return &ValidationError{Message: fmt.Sprintf("listing field %s needs an index", r.Field.Kind)}
		}
		if r.Field.Kind == "" {
			return &ValidationError{Message: "listingField is required for listing source"}
		}
	case CustomRule:
		if r.Value != "" && len(m.AcceptedValues) > 0 {
			if _, ok := CanonicalValue(r.Value, m.AcceptedValues); !ok {
				return &ValidationError{
					Message: fmt.Sprintf("value %q is not an accepted value", r.Value),
					Fields:  map[string]string{"defaultValue": r.Value},
				}
			}
		}
	case RandomRule:
		if !r.Kind.valid() {
			return &ValidationError{Message: fmt.Sprintf("unknown randomType %q", r.Kind)}
		}
	}
	return nil
}

// CanonicalValue 在有效值列表中做大小写无关匹配，返回列表中的原始写法
func CanonicalValue(value string, accepted []string) (string, bool) {
	v := strings.TrimSpace(value)
	for _, a := range accepted {
		if a == v {
			return a, true
		}
	}
	for _, a := range accepted {
		if strings.EqualFold(a, v) {
			return a, true
		}
	}
	return value, false
}

type fieldMappingJSON struct {
	Source          Source     `json:"source"`
	ListingField    string     `json:"listingField,omitempty"`
	DefaultValue    *string    `json:"defaultValue,omitempty"`
	RandomType      RandomKind `json:"randomType,omitempty"`
	TemplateDefault string     `json:"templateDefault,omitempty"`
	AcceptedValues  []string   `json:"acceptedValues,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m FieldMapping) MarshalJSON() ([]byte, error) {
	out := fieldMappingJSON{
		TemplateDefault: m.TemplateDefault,
		AcceptedValues:  m.AcceptedValues,
	}
	switch r := m.Rule.(type) {
	case ListingRule:
		out.Source = SourceListing
		out.ListingField = r.Field.String()
	case CustomRule:
		out.Source = SourceCustom
		v := r.Value
		out.DefaultValue = &v
	case TemplateDefaultRule:
		out.Source = SourceTemplateDefault
	case RandomRule:
		out.Source = SourceRandom
		out.RandomType = r.Kind
	default:
		return nil, fmt.Errorf("field mapping has no source")
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. 判别字段必填，且只接受与来源匹配的字段组合。
func (m *FieldMapping) UnmarshalJSON(b []byte) error {
	var in fieldMappingJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	hasListing := in.ListingField != ""
	hasDefault := in.DefaultValue != nil
	hasRandom := in.RandomType != ""

	var rule Rule
	switch in.Source {
	case SourceListing:
		if hasDefault || hasRandom {
			return fmt.Errorf("listing mapping must not carry defaultValue or randomType")
		}
		field, err := ParseListingField(in.ListingField)
		if err != nil {
			return err
		}
		rule = ListingRule{Field: field}
	case SourceCustom:
		if hasListing || hasRandom {
			return fmt.Errorf("custom mapping must not carry listingField or randomType")
		}
		v := ""
		if in.DefaultValue != nil {
			v = *in.DefaultValue
		}
		rule = CustomRule{Value: v}
	case SourceTemplateDefault:
		if hasListing || hasDefault || hasRandom {
			return fmt.Errorf("template_default mapping must not carry listingField, defaultValue or randomType")
		}
		rule = TemplateDefaultRule{}
	case SourceRandom:
		if hasListing || hasDefault {
			return fmt.Errorf("random mapping must not carry listingField or defaultValue")
		}
		if !in.RandomType.valid() {
			return fmt.Errorf("unknown randomType %q", in.RandomType)
		}
		rule = RandomRule{Kind: in.RandomType}
	case "":
		return fmt.Errorf("mapping source is required")
	default:
		return fmt.Errorf("unknown mapping source %q", in.Source)
	}

	*m = FieldMapping{
		Rule:            rule,
		TemplateDefault: in.TemplateDefault,
		AcceptedValues:  in.AcceptedValues,
	}
	return nil
}
