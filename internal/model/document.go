package model

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// 映射文档中的保留键（非数字），与列号键并存
const (
	KeySheetName       = "__sheet_name__"
	KeyHeaderRow       = "__header_row__"
	KeyDataStartRow    = "__data_start_row__"
	KeyHeaderConfident = "__header_confident__"
	KeyTemplateFile    = "__template_file__"
)

// MappingDocument 持久化的映射文档解码结果
type MappingDocument struct {
	Mappings map[int]FieldMapping
	Layout   Layout
	// File 原始工作簿的 gzip+base64 编码，导出时再解码
	File string
}

// EncodeMappingDocument 将映射、版式与原始工作簿编码为一个 JSON 对象
func EncodeMappingDocument(mappings map[int]FieldMapping, layout Layout, payload []byte) ([]byte, error) {
	doc := make(map[string]any, len(mappings)+5)
	for col, m := range mappings {
		doc[strconv.Itoa(col)] = m
	}
	doc[KeySheetName] = layout.SheetName
	doc[KeyHeaderRow] = layout.HeaderRowIndex
	doc[KeyDataStartRow] = layout.DataStartRowIndex
	doc[KeyHeaderConfident] = layout.Confident

	if len(payload) > 0 {
		enc, err := EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		doc[KeyTemplateFile] = enc
	}
	return json.Marshal(doc)
}

// DecodeMappingDocument 解析映射文档；未知的非数字键视为错误
func DecodeMappingDocument(data []byte) (*MappingDocument, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode mapping document: %w", err)
	}

	doc := &MappingDocument{Mappings: make(map[int]FieldMapping)}
	for key, val := range raw {
		var err error
		switch key {
		case KeySheetName:
			err = json.Unmarshal(val, &doc.Layout.SheetName)
		case KeyHeaderRow:
			err = json.Unmarshal(val, &doc.Layout.HeaderRowIndex)
		case KeyDataStartRow:
			err = json.Unmarshal(val, &doc.Layout.DataStartRowIndex)
		case KeyHeaderConfident:
			err = json.Unmarshal(val, &doc.Layout.Confident)
		case KeyTemplateFile:
			err = json.Unmarshal(val, &doc.File)
		default:
			col, convErr := strconv.Atoi(key)
			if convErr != nil || col < 0 {
				return nil, fmt.Errorf("unknown mapping key %q", key)
			}
			var m FieldMapping
			err = json.Unmarshal(val, &m)
			doc.Mappings[col] = m
		}
		if err != nil {
			return nil, fmt.Errorf("decode mapping key %q: %w", key, err)
		}
	}
	return doc, nil
}

// EncodePayload gzip 压缩后 base64 编码
func EncodePayload(raw []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("gzip template payload failed: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip template payload failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodePayload EncodePayload 的逆过程
func DecodePayload(b64 string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode template base64 failed: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open template gzip failed: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read template gzip failed: %w", err)
	}
	return raw, nil
}
