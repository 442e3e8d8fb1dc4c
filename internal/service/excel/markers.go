package excel

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed markers.yaml
var markersYAML []byte

// ColumnRole 列语义
type ColumnRole string

const (
	RoleSKU         ColumnRole = "sku"
	RoleExternalID  ColumnRole = "external_id"
	RoleImage       ColumnRole = "image"
	RoleBullet      ColumnRole = "bullet"
	RoleTitle       ColumnRole = "title"
	RoleDescription ColumnRole = "description"
	RoleBrand       ColumnRole = "brand"
	RolePrice       ColumnRole = "price"
	RoleShipping    ColumnRole = "shipping"
)

type columnRule struct {
	Role    ColumnRole `yaml:"role"`
	Any     [][]string `yaml:"any"`
	Exclude []string   `yaml:"exclude"`
}

// match 任一组标记词全部按词命中且未命中排除词
func (r columnRule) match(header string) bool {
	if containsAny(header, r.Exclude) {
		return false
	}
	for _, group := range r.Any {
		if len(group) == 0 {
			continue
		}
		ok := true
		for _, sub := range group {
			if !containsWord(header, sub) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

type markerTable struct {
	TemplateSheet    []string     `yaml:"template_sheet"`
	ValidValuesSheet []string     `yaml:"valid_values_sheet"`
	HeaderMarkers    []string     `yaml:"header_markers"`
	FieldNameHeader  []string     `yaml:"field_name_header"`
	ValidValueHeader []string     `yaml:"valid_value_header"`
	NoneTokens       []string     `yaml:"none_tokens"`
	Columns          []columnRule `yaml:"columns"`
}

var defaultMarkers = mustLoadMarkers(markersYAML)

func mustLoadMarkers(data []byte) *markerTable {
	t, err := loadMarkers(data)
	if err != nil {
		panic(err)
	}
	return t
}

func loadMarkers(data []byte) (*markerTable, error) {
	var t markerTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse marker table: %w", err)
	}
	if len(t.TemplateSheet) == 0 || len(t.HeaderMarkers) == 0 {
		return nil, fmt.Errorf("marker table is missing template_sheet or header_markers")
	}

	for _, list := range []*[]string{
		&t.TemplateSheet, &t.ValidValuesSheet, &t.HeaderMarkers,
		&t.FieldNameHeader, &t.ValidValueHeader, &t.NoneTokens,
	} {
		normalizeAll(*list)
	}
	for i := range t.Columns {
		normalizeAll(t.Columns[i].Exclude)
		for j := range t.Columns[i].Any {
			normalizeAll(t.Columns[i].Any[j])
		}
	}
	return &t, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeText 小写、去首尾空白、压缩连续空白
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToLower(s)
}

func normalizeAll(list []string) {
	for i := range list {
		list[i] = normalizeText(list[i])
	}
}

func containsAny(text string, tokens []string) bool {
	return firstContained(text, tokens) != ""
}

// firstContained 返回第一个在 text 中按词出现的标记词
func firstContained(text string, tokens []string) string {
	for _, tok := range tokens {
		if containsWord(text, tok) {
			return tok
		}
	}
	return ""
}

// containsWord 标记词两侧必须是文本边界或非字母字符，"mall" 不命中 "small"
//
// 中日文没有词间空格，标记词以汉字或假名开头（结尾）时不检查该侧边界。
func containsWord(text, tok string) bool {
	if tok == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(tok)
	last, _ := utf8.DecodeLastRuneInString(tok)
	for from := 0; from <= len(text)-len(tok); {
		i := strings.Index(text[from:], tok)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(tok)
		if (isIdeographic(first) || wordEdge(text[:start], true)) &&
			(isIdeographic(last) || wordEdge(text[end:], false)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return false
}

// wordEdge 判断 s 靠近标记词一侧的字符是否构成词边界
func wordEdge(s string, before bool) bool {
	if s == "" {
		return true
	}
	var r rune
	if before {
		r, _ = utf8.DecodeLastRuneInString(s)
	} else {
		r, _ = utf8.DecodeRuneInString(s)
	}
	return !unicode.IsLetter(r)
}

func isIdeographic(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

func equalsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if text == tok {
			return true
		}
	}
	return false
}
