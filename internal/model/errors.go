package model

import (
	"errors"
	"fmt"
)

// SchemaNotFoundError 上传时无法定位模板 sheet 或表头行
type SchemaNotFoundError struct {
	Reason string
}

func (e *SchemaNotFoundError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "no recognizable schema"
}

// TemplateIncompleteError 模板二进制缺失或损坏，导出在写入任何单元格前中止
type TemplateIncompleteError struct {
	TemplateID string
	Err        error
}

func (e *TemplateIncompleteError) Error() string {
	msg := "template binary missing"
	if e.TemplateID != "" {
		msg = fmt.Sprintf("template binary missing: %s", e.TemplateID)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateIncompleteError) Unwrap() error { return e.Err }

// SerializationError 输出工作簿重新编码失败
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize workbook: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// NotFoundError 资源不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError 请求参数或映射校验失败
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// IsSchemaNotFound reports whether err wraps a SchemaNotFoundError.
func IsSchemaNotFound(err error) bool {
	var target *SchemaNotFoundError
	return errors.As(err, &target)
}

// IsTemplateIncomplete reports whether err wraps a TemplateIncompleteError.
func IsTemplateIncomplete(err error) bool {
	var target *TemplateIncompleteError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsSerialization reports whether err wraps a SerializationError.
func IsSerialization(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}
